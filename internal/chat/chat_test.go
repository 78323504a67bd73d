package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/directory"
	"github.com/moatasem1234/madrasati/internal/session"
)

// backend is a scripted fake of the school chat API with call counters.
type backend struct {
	mu sync.Mutex

	loginJSON         string
	conversationsJSON string
	messagesJSON      map[int]string
	teachersJSON      string
	parentsJSON       string

	failSend     bool
	failMarkRead bool

	counts map[string]int
}

const parentLoginJSON = `{
	"user": {
		"id": 7,
		"name": "Huda",
		"email": "huda@example.com",
		"roles": [{"id": 1, "name": "Parent", "slug": "parent"}],
		"permissions": []
	},
	"token": "tok-7"
}`

func newBackend() *backend {
	return &backend{
		loginJSON:         parentLoginJSON,
		conversationsJSON: `{"conversations":[]}`,
		messagesJSON:      map[int]string{},
		teachersJSON:      `{"data":[]}`,
		parentsJSON:       `{"data":[]}`,
		counts:            map[string]int{},
	}
}

var (
	messagesPath = regexp.MustCompile(`^/chat/conversations/(\d+)/messages$`)
	readPath     = regexp.MustCompile(`^/chat/conversations/(\d+)/read$`)
	deletePath   = regexp.MustCompile(`^/chat/messages/(\d+)$`)
	unreadPath   = regexp.MustCompile(`^/chat/unread-count/(\d+)$`)
)

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	b.counts[key]++

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		fmt.Fprint(w, b.loginJSON)
	case r.Method == http.MethodGet && r.URL.Path == "/chat/conversations":
		fmt.Fprint(w, b.conversationsJSON)
	case r.Method == http.MethodPost && r.URL.Path == "/chat/conversations":
		fmt.Fprint(w, `{"id":99,"title":"","created_at":"2026-03-01T10:00:00Z"}`)
	case r.Method == http.MethodGet && messagesPath.MatchString(r.URL.Path):
		var id int
		fmt.Sscanf(messagesPath.FindStringSubmatch(r.URL.Path)[1], "%d", &id)
		body, ok := b.messagesJSON[id]
		if !ok {
			body = `{"messages":[]}`
		}
		fmt.Fprint(w, body)
	case r.Method == http.MethodPost && messagesPath.MatchString(r.URL.Path):
		if b.failSend {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error":"message rejected"}`)
			return
		}
		fmt.Fprint(w, `{"id":500,"conversation_id":1,"content":"ok","created_at":"2026-03-01T10:00:00Z","sender":{"name":"Huda","user":{"id":7,"name":"Huda"},"type":"parent"}}`)
	case r.Method == http.MethodPatch && readPath.MatchString(r.URL.Path):
		if b.failMarkRead {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":"receipt failed"}`)
			return
		}
		fmt.Fprint(w, `{"status":"read"}`)
	case r.Method == http.MethodDelete && deletePath.MatchString(r.URL.Path):
		fmt.Fprint(w, `{"status":"deleted"}`)
	case r.Method == http.MethodGet && unreadPath.MatchString(r.URL.Path):
		fmt.Fprint(w, `3`)
	case r.Method == http.MethodGet && r.URL.Path == "/teachers":
		fmt.Fprint(w, b.teachersJSON)
	case r.Method == http.MethodGet && r.URL.Path == "/parents":
		fmt.Fprint(w, b.parentsJSON)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"not found"}`)
	}
}

func (b *backend) count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[method+" "+path]
}

func (b *backend) setFailSend(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSend = v
}

func (b *backend) setFailMarkRead(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failMarkRead = v
}

func (b *backend) setConversations(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversationsJSON = body
}

func (b *backend) setMessages(conversationID int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messagesJSON[conversationID] = body
}

func (b *backend) setDirectories(teachersJSON, parentsJSON string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teachersJSON = teachersJSON
	b.parentsJSON = parentsJSON
}

// harness wires backend, transport, session, cache, and clients the way
// the CLI does.
type harness struct {
	backend  *backend
	store    *cache.Store
	chat     *Client
	dir      *directory.Client
	sessions *session.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithLogin(t, parentLoginJSON)
}

func newHarnessWithLogin(t *testing.T, loginJSON string) *harness {
	t.Helper()
	b := newBackend()
	b.loginJSON = loginJSON
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	sessions := session.NewStore(nil, zerolog.Nop())
	apiClient, err := api.New(api.Opts{BaseURL: srv.URL, Tokens: sessions, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	sessions.AttachClient(apiClient)

	if _, err := sessions.Login(context.Background(), "huda@example.com", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	return &harness{
		backend:  b,
		store:    cache.New(zerolog.Nop()),
		chat:     NewClient(apiClient),
		dir:      directory.NewClient(apiClient),
		sessions: sessions,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
