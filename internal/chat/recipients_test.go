package chat

import (
	"errors"
	"testing"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/session"
)

const teacherLoginJSON = `{
	"user": {
		"id": 12,
		"name": "Mr. Adel",
		"email": "adel@example.com",
		"roles": [{"id": 2, "name": "Teacher", "slug": "teacher"}],
		"permissions": []
	},
	"token": "tok-12"
}`

func TestResolveRole(t *testing.T) {
	parent := session.Role{ID: 1, Name: "Parent", Slug: "parent"}
	teacher := session.Role{ID: 2, Name: "Teacher", Slug: "teacher"}
	admin := session.Role{ID: 3, Name: "Admin", Slug: "admin"}

	cases := []struct {
		name    string
		roles   []session.Role
		want    string
		wantErr bool
	}{
		{"parent only", []session.Role{parent}, RoleParent, false},
		{"teacher only", []session.Role{teacher}, RoleTeacher, false},
		{"both prefers parent", []session.Role{teacher, parent}, RoleParent, false},
		{"neither", []session.Role{admin}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRole(&session.Principal{ID: 1, Roles: tc.roles})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveRole: %v", err)
			}
			if got != tc.want {
				t.Errorf("ResolveRole = %q, want %q", got, tc.want)
			}
		})
	}
}

func newPicker(t *testing.T, h *harness) *RecipientPicker {
	t.Helper()
	p, err := NewRecipientPicker(h.store, h.chat, h.dir, h.sessions.Principal(), nopLogger())
	if err != nil {
		t.Fatalf("NewRecipientPicker: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestParentSeesTeachers(t *testing.T) {
	h := newHarness(t)
	h.backend.setDirectories(
		`{"data":[{"id":3,"user_id":12,"user":{"id":12,"name":"Mr. Adel"}}]}`,
		`{"data":[]}`,
	)

	p := newPicker(t, h)
	if p.RecipientType() != RoleTeacher {
		t.Errorf("parent should target teachers, got %q", p.RecipientType())
	}

	candidates, err := p.Candidates(testCtx(t))
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Mr. Adel" || candidates[0].ID != 3 {
		t.Errorf("unexpected candidates %+v", candidates)
	}
	if got := h.backend.count("GET", "/teachers"); got != 1 {
		t.Errorf("expected 1 teachers fetch, got %d", got)
	}
	if got := h.backend.count("GET", "/parents"); got != 0 {
		t.Errorf("parent principal fetched the parents listing %d times", got)
	}
}

func TestTeacherSeesParents(t *testing.T) {
	h := newHarnessWithLogin(t, teacherLoginJSON)
	h.backend.setDirectories(
		`{"data":[]}`,
		`{"data":[{"id":9,"user_id":7,"user":{"id":7,"name":"Huda"}}]}`,
	)

	p := newPicker(t, h)
	if p.RecipientType() != RoleParent {
		t.Errorf("teacher should target parents, got %q", p.RecipientType())
	}

	candidates, err := p.Candidates(testCtx(t))
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Huda" {
		t.Errorf("unexpected candidates %+v", candidates)
	}
	if got := h.backend.count("GET", "/parents"); got != 1 {
		t.Errorf("expected 1 parents fetch, got %d", got)
	}
	if got := h.backend.count("GET", "/teachers"); got != 0 {
		t.Errorf("teacher principal fetched the teachers listing %d times", got)
	}
}

func TestStartWithoutRecipient(t *testing.T) {
	h := newHarness(t)
	p := newPicker(t, h)

	_, err := p.Start(testCtx(t), "")
	var verr *api.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := h.backend.count("POST", "/chat/conversations"); got != 0 {
		t.Errorf("unstaged start reached the network %d times", got)
	}
}

func TestStartConversation(t *testing.T) {
	h := newHarness(t)
	p := newPicker(t, h)

	p.Select(3)
	if id, ok := p.Selected(); !ok || id != 3 {
		t.Fatalf("Selected = (%d, %v), want (3, true)", id, ok)
	}

	ref, err := p.Start(testCtx(t), "حضور أحمد")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if ref.ID != 99 {
		t.Errorf("expected conversation 99, got %d", ref.ID)
	}
	if got := h.backend.count("POST", "/chat/conversations"); got != 1 {
		t.Errorf("expected 1 start request, got %d", got)
	}
}

func TestStartRefreshesConversationList(t *testing.T) {
	h := newHarness(t)

	list := NewConversationList(h.store, h.chat, nopLogger())
	defer list.Close()
	list.Activate()
	if _, err := list.Items(testCtx(t)); err != nil {
		t.Fatalf("Items: %v", err)
	}

	p := newPicker(t, h)
	p.Select(3)
	if _, err := p.Start(testCtx(t), ""); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The conversation tag invalidation refetches the subscribed list.
	waitFor(t, func() bool {
		return h.backend.count("GET", "/chat/conversations") >= 2
	})
}
