// internal/handlers/friends_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/friendship"
	"github.com/tanglesocial/tangle/internal/models"
)

// memoryDirectory backs the engine with in-memory profiles.
type memoryDirectory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]friendship.Profile
}

func (d *memoryDirectory) add(username string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.profiles[id] = friendship.Profile{ID: id, Username: username}
	return id
}

func (d *memoryDirectory) Lookup(_ context.Context, userID uuid.UUID) (friendship.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[userID]
	if !ok {
		return friendship.Profile{}, friendship.ErrUserNotFound
	}
	return p, nil
}

func (d *memoryDirectory) ListActive(_ context.Context) ([]friendship.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]friendship.Profile, 0, len(d.profiles))
	for _, p := range d.profiles {
		out = append(out, p)
	}
	return out, nil
}

// capturedNotifications records writes instead of hitting a database.
type capturedNotifications struct {
	mu   sync.Mutex
	rows []models.Notification
}

func (c *capturedNotifications) Create(_ context.Context, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, *n)
	return nil
}

func newTestFriendHandler(t *testing.T) (*FriendHandler, *memoryDirectory, *capturedNotifications) {
	t.Helper()
	if err := auth.Init(); err != nil {
		t.Fatalf("auth init: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := friendship.NewMemoryStore()
	dir := &memoryDirectory{profiles: make(map[uuid.UUID]friendship.Profile)}
	notes := &capturedNotifications{}
	h := &FriendHandler{
		Engine:        friendship.NewEngine(store, dir, nil, logger),
		Suggester:     friendship.NewSuggester(store, dir, logger),
		Notifications: notes,
		Log:           logger,
	}
	return h, dir, notes
}

func authedRequest(t *testing.T, method, target string, userID uuid.UUID, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	token, err := auth.CreateJWT(userID.String())
	if err != nil {
		t.Fatalf("create jwt: %v", err)
	}
	req.Header.Set("Cookie", auth.CookieName+"="+token)
	return req
}

// TestFriendFlow drives the full request/accept/list cycle over HTTP.
func TestFriendFlow(t *testing.T) {
	h, dir, notes := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")

	// alice sends bob a friend request
	w := httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	var created friendship.RequestResult
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode request result: %v", err)
	}
	if created.Status != friendship.StatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}

	// bob sees the request with alice's profile attached
	w = httptest.NewRecorder()
	h.Requests(w, authedRequest(t, "GET", "/friends/requests", bob, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var incoming []friendship.IncomingRequest
	if err := json.Unmarshal(w.Body.Bytes(), &incoming); err != nil {
		t.Fatalf("decode incoming requests: %v", err)
	}
	if len(incoming) != 1 || incoming[0].Requester.Username != "alice" {
		t.Fatalf("unexpected incoming requests: %+v", incoming)
	}

	// bob accepts
	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", bob, `{"relationship_id":"`+created.ID.String()+`"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	// both sides now list each other
	for _, tc := range []struct {
		viewer uuid.UUID
		expect string
	}{
		{alice, "bob"},
		{bob, "alice"},
	} {
		w = httptest.NewRecorder()
		h.List(w, authedRequest(t, "GET", "/friends", tc.viewer, ""))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
		}
		var friends []friendship.FriendEntry
		if err := json.Unmarshal(w.Body.Bytes(), &friends); err != nil {
			t.Fatalf("decode friend list: %v", err)
		}
		if len(friends) != 1 || friends[0].Friend.Username != tc.expect {
			t.Fatalf("unexpected friend list for %s: %+v", tc.expect, friends)
		}
	}

	// request and acceptance each produced a notification row
	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.rows) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notes.rows))
	}
	if notes.rows[0].Kind != models.NotificationFriendRequest || notes.rows[0].RecipientID != bob {
		t.Fatalf("unexpected first notification: %+v", notes.rows[0])
	}
	if notes.rows[1].Kind != models.NotificationFriendAccepted || notes.rows[1].RecipientID != alice {
		t.Fatalf("unexpected second notification: %+v", notes.rows[1])
	}
}

func TestFriendRequestStatuses(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")

	cases := []struct {
		name   string
		actor  uuid.UUID
		body   string
		status int
	}{
		{"self request", alice, `{"user_id":"` + alice.String() + `"}`, http.StatusBadRequest},
		{"unknown target", alice, `{"user_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"malformed body", alice, `{"user_id":`, http.StatusBadRequest},
		{"bad uuid", alice, `{"user_id":"nope"}`, http.StatusBadRequest},
		{"first request", alice, `{"user_id":"` + bob.String() + `"}`, http.StatusCreated},
		{"duplicate request", alice, `{"user_id":"` + bob.String() + `"}`, http.StatusConflict},
		{"reverse duplicate", bob, `{"user_id":"` + alice.String() + `"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.Request(w, authedRequest(t, "POST", "/friends/request", tc.actor, tc.body))
		if w.Code != tc.status {
			t.Errorf("%s: expected %d, got %d, body=%s", tc.name, tc.status, w.Code, w.Body.String())
		}
	}
}

func TestFriendRequestRequiresAuth(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	bob := dir.add("bob")

	req := httptest.NewRequest("POST", "/friends/request", bytes.NewBufferString(`{"user_id":"`+bob.String()+`"}`))
	w := httptest.NewRecorder()
	h.Request(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAcceptAuthorization(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")
	carol := dir.add("carol")

	w := httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var created friendship.RequestResult
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode request result: %v", err)
	}
	body := `{"relationship_id":"` + created.ID.String() + `"}`

	// a third party cannot accept and cannot learn the request exists
	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", carol, body))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for third party, got %d", w.Code)
	}

	// neither can the requester
	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", alice, body))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for requester, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", bob, body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for recipient, got %d, body=%s", w.Code, w.Body.String())
	}

	// accepting twice is a conflict
	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", bob, body))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on re-accept, got %d", w.Code)
	}
}

func TestDeclineThenRetry(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")

	w := httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	var created friendship.RequestResult
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode request result: %v", err)
	}

	w = httptest.NewRecorder()
	h.Decline(w, authedRequest(t, "POST", "/friends/decline", bob, `{"relationship_id":"`+created.ID.String()+`"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	// nothing remains; alice may ask again
	w = httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on retry, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestRemoveFriend(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")

	w := httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	var created friendship.RequestResult
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode request result: %v", err)
	}
	w = httptest.NewRecorder()
	h.Accept(w, authedRequest(t, "POST", "/friends/accept", bob, `{"relationship_id":"`+created.ID.String()+`"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Remove(w, authedRequest(t, "POST", "/friends/remove", alice, `{"user_id":"`+bob.String()+`"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	// second removal finds nothing
	w = httptest.NewRecorder()
	h.Remove(w, authedRequest(t, "POST", "/friends/remove", bob, `{"user_id":"`+alice.String()+`"}`))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSuggestions(t *testing.T) {
	h, dir, _ := newTestFriendHandler(t)
	alice := dir.add("alice")
	bob := dir.add("bob")
	for i := 0; i < 5; i++ {
		dir.add("user")
	}

	// alice requests bob; bob must disappear from her suggestions
	w := httptest.NewRecorder()
	h.Request(w, authedRequest(t, "POST", "/friends/request", alice, `{"user_id":"`+bob.String()+`"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Suggestions(w, authedRequest(t, "GET", "/friends/suggestions?limit=3", alice, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var suggestions []friendship.Suggestion
	if err := json.Unmarshal(w.Body.Bytes(), &suggestions); err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(suggestions))
	}
	for _, s := range suggestions {
		if s.ID == alice || s.ID == bob {
			t.Fatalf("suggestion contains excluded user %s", s.Username)
		}
	}
}
