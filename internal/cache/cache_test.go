package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore() *Store {
	return New(zerolog.Nop())
}

// countingFetch returns a FetchFunc that counts invocations and returns the
// given value.
func countingFetch(calls *atomic.Int32, value any) FetchFunc {
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func waitValue(t *testing.T, sub *Subscription) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("Wait result error: %v", res.Err)
	}
	return res.Value
}

func TestSubscribe_FetchesAndDeliversValue(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}

	sub := s.Subscribe(key, []Tag{{Type: "Conversation"}}, countingFetch(&calls, "payload"))
	defer sub.Close()

	if got := waitValue(t, sub); got != "payload" {
		t.Errorf("value = %v, want payload", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestSubscribe_ConcurrentSubscribersShareOneFetch(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}
	key := Key{Endpoint: "messages", Params: "7"}
	tags := []Tag{{Type: "Message", ID: "7"}}

	subA := s.Subscribe(key, tags, fetch)
	defer subA.Close()
	subB := s.Subscribe(key, tags, fetch)
	defer subB.Close()
	close(release)

	var wg sync.WaitGroup
	for _, sub := range []*Subscription{subA, subB} {
		wg.Add(1)
		go func(sub *Subscription) {
			defer wg.Done()
			if got := waitValue(t, sub); got != 42 {
				t.Errorf("value = %v, want 42", got)
			}
		}(sub)
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want exactly 1 for identical key", n)
	}
}

func TestSubscribe_FreshValueServedWithoutFetch(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}
	tags := []Tag{{Type: "Conversation"}}

	first := s.Subscribe(key, tags, countingFetch(&calls, "v1"))
	waitValue(t, first)
	first.Close()

	second := s.Subscribe(key, tags, countingFetch(&calls, "v2"))
	defer second.Close()
	if got := waitValue(t, second); got != "v1" {
		t.Errorf("value = %v, want cached v1", got)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (cache hit)", n)
	}
}

func TestRefetch_ForcesNetworkCall(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}

	sub := s.Subscribe(key, []Tag{{Type: "Conversation"}}, countingFetch(&calls, "v"))
	defer sub.Close()
	waitValue(t, sub)

	s.Refetch(key)
	waitValue(t, sub)

	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after explicit refetch", n)
	}
}

func TestInvalidate_RefetchesSubscribedEntry(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}

	sub := s.Subscribe(key, []Tag{{Type: "Conversation"}}, countingFetch(&calls, "v"))
	defer sub.Close()
	waitValue(t, sub)

	s.Invalidate(Tag{Type: "Conversation"})
	waitValue(t, sub)

	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after invalidation", n)
	}
}

func TestInvalidate_LeavesUnrelatedTagsAlone(t *testing.T) {
	s := newTestStore()
	var convCalls, parentCalls atomic.Int32

	convSub := s.Subscribe(Key{Endpoint: "conversations"},
		[]Tag{{Type: "Conversation"}}, countingFetch(&convCalls, "c"))
	defer convSub.Close()
	parentSub := s.Subscribe(Key{Endpoint: "parents"},
		[]Tag{{Type: "Parent"}}, countingFetch(&parentCalls, "p"))
	defer parentSub.Close()
	waitValue(t, convSub)
	waitValue(t, parentSub)

	s.Invalidate(Tag{Type: "Conversation"})
	waitValue(t, convSub)

	if n := parentCalls.Load(); n != 1 {
		t.Errorf("parent fetch calls = %d, want 1 (unaffected by Conversation tag)", n)
	}
}

func TestInvalidate_ScopedTagMatching(t *testing.T) {
	s := newTestStore()
	var calls1, calls2 atomic.Int32

	sub1 := s.Subscribe(Key{Endpoint: "messages", Params: "1"},
		[]Tag{{Type: "Message", ID: "1"}}, countingFetch(&calls1, "m1"))
	defer sub1.Close()
	sub2 := s.Subscribe(Key{Endpoint: "messages", Params: "2"},
		[]Tag{{Type: "Message", ID: "2"}}, countingFetch(&calls2, "m2"))
	defer sub2.Close()
	waitValue(t, sub1)
	waitValue(t, sub2)

	s.Invalidate(Tag{Type: "Message", ID: "1"})
	waitValue(t, sub1)

	if n := calls1.Load(); n != 2 {
		t.Errorf("messages/1 fetch calls = %d, want 2", n)
	}
	if n := calls2.Load(); n != 1 {
		t.Errorf("messages/2 fetch calls = %d, want 1 (different scope)", n)
	}
}

func TestInvalidate_UnscopedHitsAllScopes(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32

	sub := s.Subscribe(Key{Endpoint: "messages", Params: "9"},
		[]Tag{{Type: "Message", ID: "9"}}, countingFetch(&calls, "m"))
	defer sub.Close()
	waitValue(t, sub)

	s.Invalidate(Tag{Type: "Message"})
	waitValue(t, sub)

	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 (unscoped invalidation hits scoped provider)", n)
	}
}

func TestInvalidate_UnsubscribedEntryRefetchesOnNextSubscribe(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}
	tags := []Tag{{Type: "Conversation"}}

	sub := s.Subscribe(key, tags, countingFetch(&calls, "v"))
	waitValue(t, sub)
	sub.Close()

	s.Invalidate(Tag{Type: "Conversation"})
	// No subscriber: invalidation must not fetch eagerly.
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls = %d, want 1 (no eager refetch without subscriber)", n)
	}

	sub2 := s.Subscribe(key, tags, countingFetch(&calls, "v2"))
	defer sub2.Close()
	waitValue(t, sub2)
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 (stale entry refetched on subscribe)", n)
	}
}

func TestInvalidate_DuringInFlightFetchConverges(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	var serverValue atomic.Value
	serverValue.Store("old")
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		v := serverValue.Load()
		if n == 2 {
			<-release
		}
		return v, nil
	}
	key := Key{Endpoint: "messages", Params: "1"}
	tags := []Tag{{Type: "Message", ID: "1"}}

	sub := s.Subscribe(key, tags, fetch)
	defer sub.Close()
	if got := waitValue(t, sub); got != "old" {
		t.Fatalf("value = %v, want old", got)
	}

	// Second fetch captures the old payload, then stalls mid-flight.
	s.Refetch(key)
	serverValue.Store("new")
	s.Invalidate(Tag{Type: "Message", ID: "1"})
	close(release)

	if got := waitValue(t, sub); got != "new" {
		t.Errorf("value = %v, want new (mid-flight invalidation must trigger another fetch)", got)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("fetch calls = %d, want 3 (initial, stalled, follow-up)", n)
	}
}

func TestRefetch_DuringInFlightFetchIsQueued(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			<-release
		}
		return n, nil
	}
	key := Key{Endpoint: "conversations"}

	sub := s.Subscribe(key, []Tag{{Type: "Conversation"}}, fetch)
	defer sub.Close()

	s.Refetch(key)
	close(release)

	if got := waitValue(t, sub); got != int32(2) {
		t.Errorf("value = %v, want result of the queued second fetch", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestInvalidate_DuringInFlightFetchWithoutSubscriberStaysStale(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}
	key := Key{Endpoint: "conversations"}
	tags := []Tag{{Type: "Conversation"}}

	sub := s.Subscribe(key, tags, fetch)
	sub.Close()
	s.Invalidate(Tag{Type: "Conversation"})
	close(release)

	// No subscriber: the completed fetch must not be promoted to fresh.
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("fetch calls = %d, want 1 (no eager refetch without subscriber)", n)
	}

	sub2 := s.Subscribe(key, tags, countingFetch(&calls, "v2"))
	defer sub2.Close()
	waitValue(t, sub2)
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 (entry invalidated mid-flight stays stale)", n)
	}
}

func TestFetchError_RetainsPreviousValue(t *testing.T) {
	s := newTestStore()
	var fail atomic.Bool
	fetch := func(ctx context.Context) (any, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return "good", nil
	}
	key := Key{Endpoint: "conversations"}

	sub := s.Subscribe(key, []Tag{{Type: "Conversation"}}, fetch)
	defer sub.Close()
	waitValue(t, sub)

	fail.Store(true)
	s.Refetch(key)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != StatusError {
		t.Errorf("Status = %v, want StatusError", res.Status)
	}
	if res.Err == nil {
		t.Error("Err = nil, want fetch error")
	}
	if res.Value != "good" {
		t.Errorf("Value = %v, want previous value retained alongside error", res.Value)
	}
}

func TestMutate_SuccessInvalidates(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32

	sub := s.Subscribe(Key{Endpoint: "conversations"},
		[]Tag{{Type: "Conversation"}}, countingFetch(&calls, "v"))
	defer sub.Close()
	waitValue(t, sub)

	out, err := s.Mutate(context.Background(), func(ctx context.Context) (any, error) {
		return "created", nil
	}, Tag{Type: "Conversation"})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if out != "created" {
		t.Errorf("Mutate value = %v, want created", out)
	}

	waitValue(t, sub)
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2 after mutation", n)
	}
}

func TestMutate_FailureDoesNotInvalidate(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32

	sub := s.Subscribe(Key{Endpoint: "conversations"},
		[]Tag{{Type: "Conversation"}}, countingFetch(&calls, "v"))
	defer sub.Close()
	waitValue(t, sub)

	_, err := s.Mutate(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("server rejected")
	}, Tag{Type: "Conversation"})
	if err == nil {
		t.Fatal("expected mutation error")
	}

	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1 (failed mutation must not invalidate)", n)
	}
}

func TestClose_StopsSignals(t *testing.T) {
	s := newTestStore()
	var calls atomic.Int32
	key := Key{Endpoint: "conversations"}
	tags := []Tag{{Type: "Conversation"}}

	sub := s.Subscribe(key, tags, countingFetch(&calls, "v"))
	waitValue(t, sub)
	sub.Close()

	// Drain any pending coalesced signal.
	select {
	case <-sub.Updates():
	default:
	}

	s.Refetch(key)
	time.Sleep(20 * time.Millisecond)

	select {
	case <-sub.Updates():
		t.Error("closed subscription received a signal")
	default:
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	s := newTestStore()
	block := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	}
	sub := s.Subscribe(Key{Endpoint: "slow"}, nil, fetch)
	defer sub.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := sub.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestTagMatching(t *testing.T) {
	tests := []struct {
		provided    Tag
		invalidated Tag
		want        bool
	}{
		{Tag{"Conversation", ""}, Tag{"Conversation", ""}, true},
		{Tag{"Conversation", ""}, Tag{"Conversation", "3"}, true},
		{Tag{"Message", "3"}, Tag{"Message", ""}, true},
		{Tag{"Message", "3"}, Tag{"Message", "3"}, true},
		{Tag{"Message", "3"}, Tag{"Message", "4"}, false},
		{Tag{"Message", "3"}, Tag{"Conversation", "3"}, false},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("%s/%s_vs_%s/%s", tt.provided.Type, tt.provided.ID, tt.invalidated.Type, tt.invalidated.ID)
		t.Run(name, func(t *testing.T) {
			if got := tt.provided.matches(tt.invalidated); got != tt.want {
				t.Errorf("matches = %v, want %v", got, tt.want)
			}
		})
	}
}
