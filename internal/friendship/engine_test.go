// internal/friendship/engine_test.go
package friendship

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory UserDirectory for engine tests.
type fakeDirectory struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]Profile
	inactive map[uuid.UUID]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profiles: make(map[uuid.UUID]Profile),
		inactive: make(map[uuid.UUID]bool),
	}
}

func (d *fakeDirectory) add(username string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.profiles[id] = Profile{ID: id, Username: username}
	return id
}

func (d *fakeDirectory) deactivate(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inactive[id] = true
}

func (d *fakeDirectory) Lookup(_ context.Context, userID uuid.UUID) (Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[userID]
	if !ok || d.inactive[userID] {
		return Profile{}, ErrUserNotFound
	}
	return p, nil
}

func (d *fakeDirectory) ListActive(_ context.Context) ([]Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Profile, 0, len(d.profiles))
	for id, p := range d.profiles {
		if !d.inactive[id] {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakePresence reports a fixed last-seen time for known users.
type fakePresence struct {
	seen map[uuid.UUID]time.Time
}

func (p *fakePresence) LastSeen(_ context.Context, userID uuid.UUID) (time.Time, bool) {
	t, ok := p.seen[userID]
	return t, ok
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestEngine(t *testing.T) (*Engine, *MemoryStore, *fakeDirectory) {
	t.Helper()
	store := NewMemoryStore()
	dir := newFakeDirectory()
	return NewEngine(store, dir, nil, quietLogger()), store, dir
}

// befriend drives a full request/accept cycle between two users.
func befriend(t *testing.T, e *Engine, a, b uuid.UUID) Relationship {
	t.Helper()
	ctx := context.Background()
	res, err := e.RequestFriendship(ctx, a, b)
	require.NoError(t, err)
	accepted, err := e.AcceptFriendship(ctx, b, res.ID)
	require.NoError(t, err)
	return accepted.Relationship
}

func TestRequestFriendship(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	res, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)
	assert.Equal(t, alice, res.RequesterID)
	assert.Equal(t, bob, res.RecipientID)
	assert.Equal(t, "bob", res.User.Username)
	assert.Nil(t, res.AcceptedAt)
}

func TestRequestFriendshipSelf(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	alice := dir.add("alice")

	_, err := engine.RequestFriendship(context.Background(), alice, alice)
	assert.ErrorIs(t, err, ErrSelfRequest)
}

func TestRequestFriendshipUnknownTarget(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	alice := dir.add("alice")

	_, err := engine.RequestFriendship(context.Background(), alice, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestFriendshipDeactivatedTarget(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	alice := dir.add("alice")
	bob := dir.add("bob")
	dir.deactivate(bob)

	_, err := engine.RequestFriendship(context.Background(), alice, bob)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRequestFriendshipDuplicatePending(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	_, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	// same direction
	_, err = engine.RequestFriendship(ctx, alice, bob)
	assert.ErrorIs(t, err, ErrRequestAlreadyPending)

	// opposite direction resolves to the same pair
	_, err = engine.RequestFriendship(ctx, bob, alice)
	assert.ErrorIs(t, err, ErrRequestAlreadyPending)
}

func TestRequestFriendshipAlreadyFriends(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	alice := dir.add("alice")
	bob := dir.add("bob")
	befriend(t, engine, alice, bob)

	_, err := engine.RequestFriendship(context.Background(), alice, bob)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
	_, err = engine.RequestFriendship(context.Background(), bob, alice)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestRequestFriendshipConcurrentDuplicates(t *testing.T) {
	engine, store, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		requester, recipient := alice, bob
		if i%2 == 1 {
			requester, recipient = bob, alice
		}
		go func() {
			defer wg.Done()
			_, err := engine.RequestFriendship(ctx, requester, recipient)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one request should win the insert race")

	rels, err := store.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, rels, 1)
}

func TestAcceptFriendship(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	res, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	accepted, err := engine.AcceptFriendship(ctx, bob, res.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, "alice", accepted.User.Username)

	// friendship is symmetric: both sides list the other
	aliceFriends, err := engine.ListFriends(ctx, alice, 1, 10)
	require.NoError(t, err)
	bobFriends, err := engine.ListFriends(ctx, bob, 1, 10)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	require.Len(t, bobFriends, 1)
	assert.Equal(t, bob, aliceFriends[0].Friend.ID)
	assert.Equal(t, alice, bobFriends[0].Friend.ID)
}

func TestAcceptFriendshipOnlyRecipient(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")
	carol := dir.add("carol")

	res, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	// the requester cannot accept their own request
	_, err = engine.AcceptFriendship(ctx, alice, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// neither can a third party
	_, err = engine.AcceptFriendship(ctx, carol, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptFriendshipNotPending(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")
	rel := befriend(t, engine, alice, bob)

	_, err := engine.AcceptFriendship(ctx, bob, rel.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptFriendshipUnknownID(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	bob := dir.add("bob")

	_, err := engine.AcceptFriendship(context.Background(), bob, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclineFriendship(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	res, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	require.NoError(t, engine.DeclineFriendship(ctx, bob, res.ID))

	// declined requests leave no trace; the requester may retry immediately
	_, err = engine.RequestFriendship(ctx, alice, bob)
	assert.NoError(t, err)
}

func TestDeclineFriendshipOnlyRecipient(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	res, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	err = engine.DeclineFriendship(ctx, alice, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFriendship(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")
	befriend(t, engine, alice, bob)

	require.NoError(t, engine.RemoveFriendship(ctx, bob, alice))

	// removal is symmetric
	friends, err := engine.ListFriends(ctx, alice, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, friends)

	// removing twice reports not found
	err = engine.RemoveFriendship(ctx, bob, alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveFriendshipPendingNotRemovable(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	_, err := engine.RequestFriendship(ctx, alice, bob)
	require.NoError(t, err)

	err = engine.RemoveFriendship(ctx, bob, alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIncomingRequests(t *testing.T) {
	engine, store, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")
	carol := dir.add("carol")
	dave := dir.add("dave")

	// carol and alice share a friend in bob
	befriend(t, engine, alice, bob)
	befriend(t, engine, carol, bob)

	first, err := engine.RequestFriendship(ctx, carol, alice)
	require.NoError(t, err)
	second, err := engine.RequestFriendship(ctx, dave, alice)
	require.NoError(t, err)

	// force a stable newest-first order
	relFirst, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	relFirst.RequestedAt = relFirst.RequestedAt.Add(-time.Minute)
	store.mu.Lock()
	store.byID[relFirst.ID] = relFirst
	store.mu.Unlock()

	reqs, err := engine.ListIncomingRequests(ctx, alice)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, second.ID, reqs[0].ID)
	assert.Equal(t, "dave", reqs[0].Requester.Username)
	assert.Equal(t, 0, reqs[0].MutualFriends)
	assert.Equal(t, first.ID, reqs[1].ID)
	assert.Equal(t, "carol", reqs[1].Requester.Username)
	assert.Equal(t, 1, reqs[1].MutualFriends)
}

func TestListIncomingRequestsSkipsDeactivated(t *testing.T) {
	engine, _, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")
	bob := dir.add("bob")

	_, err := engine.RequestFriendship(ctx, bob, alice)
	require.NoError(t, err)
	dir.deactivate(bob)

	reqs, err := engine.ListIncomingRequests(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestListFriendsPagination(t *testing.T) {
	engine, store, dir := newTestEngine(t)
	ctx := context.Background()
	alice := dir.add("alice")

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = dir.add("friend")
		rel := befriend(t, engine, alice, ids[i])

		// space out AcceptedAt so ordering is deterministic
		stored, err := store.FindByID(ctx, rel.ID)
		require.NoError(t, err)
		at := time.Now().UTC().Add(time.Duration(i) * time.Minute)
		stored.AcceptedAt = &at
		store.mu.Lock()
		store.byID[stored.ID] = stored
		store.mu.Unlock()
	}

	page1, err := engine.ListFriends(ctx, alice, 1, 2)
	require.NoError(t, err)
	page2, err := engine.ListFriends(ctx, alice, 2, 2)
	require.NoError(t, err)
	page3, err := engine.ListFriends(ctx, alice, 3, 2)
	require.NoError(t, err)
	page4, err := engine.ListFriends(ctx, alice, 4, 2)
	require.NoError(t, err)

	assert.Len(t, page1, 2)
	assert.Len(t, page2, 2)
	assert.Len(t, page3, 1)
	assert.Empty(t, page4)

	// most recently accepted first, no overlap across pages
	assert.Equal(t, ids[4], page1[0].Friend.ID)
	assert.Equal(t, ids[3], page1[1].Friend.ID)
	assert.Equal(t, ids[2], page2[0].Friend.ID)
	assert.Equal(t, ids[0], page3[0].Friend.ID)
}

func TestListFriendsPresence(t *testing.T) {
	store := NewMemoryStore()
	dir := newFakeDirectory()
	alice := dir.add("alice")
	bob := dir.add("bob")

	seen := time.Now().UTC().Truncate(time.Second)
	engine := NewEngine(store, dir, &fakePresence{seen: map[uuid.UUID]time.Time{bob: seen}}, quietLogger())
	befriend(t, engine, alice, bob)

	friends, err := engine.ListFriends(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.NotNil(t, friends[0].Friend.LastSeenAt)
	assert.Equal(t, seen, *friends[0].Friend.LastSeenAt)

	// bob has no presence record for alice
	bobsView, err := engine.ListFriends(context.Background(), bob, 1, 10)
	require.NoError(t, err)
	require.Len(t, bobsView, 1)
	assert.Nil(t, bobsView[0].Friend.LastSeenAt)
}
