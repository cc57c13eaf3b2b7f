// ABOUTME: Tests for the sync coordinator's optimistic local-apply pipeline
// ABOUTME: Covers best-effort mirroring, failure isolation, and notification outcomes
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harperreed/weekendly/models"
	"github.com/harperreed/weekendly/store"
)

// fakeGateway records calls and returns scripted results.
type fakeGateway struct {
	mu stdsync.Mutex

	insertCalls int
	patchCalls  int
	deleteCalls int

	insertErr error
	patchErr  error
	deleteErr error

	remoteID string

	lastToken    string
	lastPatchID  string
	lastDeleteID string
}

func (g *fakeGateway) Insert(ctx context.Context, accessToken string, fields EventFields) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insertCalls++
	g.lastToken = accessToken
	if g.insertErr != nil {
		return "", g.insertErr
	}
	return g.remoteID, nil
}

func (g *fakeGateway) Patch(ctx context.Context, accessToken, remoteID string, patch EventPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patchCalls++
	g.lastToken = accessToken
	g.lastPatchID = remoteID
	return g.patchErr
}

func (g *fakeGateway) Delete(ctx context.Context, accessToken, remoteID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	g.lastToken = accessToken
	g.lastDeleteID = remoteID
	return g.deleteErr
}

type notice struct {
	severity Severity
	message  string
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu      stdsync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(severity Severity, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{severity: severity, message: message})
}

func (n *recordingNotifier) bySeverity(severity Severity) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, nt := range n.notices {
		if nt.severity == severity {
			out = append(out, nt)
		}
	}
	return out
}

func testDraft(title string) models.Draft {
	start := time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC)
	return models.Draft{
		Title:    title,
		Start:    start,
		End:      start.Add(2 * time.Hour),
		Activity: models.ActivityHiking,
	}
}

type fixture struct {
	store    *store.Store
	tokens   *TokenManager
	gateway  *fakeGateway
	notifier *recordingNotifier
	coord    *Coordinator
}

func newFixture(t *testing.T, tokens *TokenManager) *fixture {
	t.Helper()
	st, err := store.Open(store.NewMemoryStorage())
	require.NoError(t, err)

	gateway := &fakeGateway{remoteID: "gcal-123"}
	notifier := &recordingNotifier{}
	return &fixture{
		store:    st,
		tokens:   tokens,
		gateway:  gateway,
		notifier: notifier,
		coord:    NewCoordinator(st, tokens, gateway, notifier),
	}
}

func authenticatedTokens() *TokenManager {
	return signedInManager(&countingTransport{}, &oauth2.Token{
		AccessToken: "valid-token",
		Expiry:      time.Now().Add(time.Hour),
	})
}

func TestAddEventValidationFailsFast(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	draft := testDraft("")
	_, _, err := f.coord.AddEvent(context.Background(), draft)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, f.gateway.insertCalls, "no remote call on validation failure")
	assert.Equal(t, 0, f.store.Len(), "no state mutation on validation failure")
	assert.Empty(t, f.notifier.notices)
}

func TestAddEventUnauthenticatedIsLocalOnly(t *testing.T) {
	f := newFixture(t, NewTokenManager(&countingTransport{}, nil))

	event, outcome, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeLocalSuccess, outcome)
	assert.Equal(t, 0, f.gateway.insertCalls, "unauthenticated: remote call skipped entirely")
	assert.Empty(t, event.RemoteID)

	stored, ok := f.store.Get(event.ID)
	require.True(t, ok, "the planner stays usable without sign-in")
	assert.Empty(t, stored.RemoteID)
	assert.Len(t, f.notifier.bySeverity(SeveritySuccess), 1)
}

func TestAddEventRemoteConfirmed(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, outcome, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoteConfirmed, outcome)
	assert.Equal(t, 1, f.gateway.insertCalls)
	assert.Equal(t, "valid-token", f.gateway.lastToken)

	stored, ok := f.store.Get(event.ID)
	require.True(t, ok)
	assert.Equal(t, "gcal-123", stored.RemoteID, "remote id attached before insertion")
}

func TestAddEventRemoteFailureStillAppliesLocally(t *testing.T) {
	f := newFixture(t, authenticatedTokens())
	f.gateway.insertErr = fmt.Errorf("calendar create failed: quota exceeded")

	event, outcome, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err, "remote failure is non-fatal")

	assert.Equal(t, OutcomeRemoteFailedLocalApplied, outcome)

	stored, ok := f.store.Get(event.ID)
	require.True(t, ok, "the user sees the event locally even if the mirror failed")
	assert.Empty(t, stored.RemoteID, "no remote id without a confirmed create")

	errNotices := f.notifier.bySeverity(SeverityError)
	require.Len(t, errNotices, 1, "remote failure surfaces as a distinct notification")
	assert.Contains(t, errNotices[0].message, "quota exceeded")
	assert.Len(t, f.notifier.bySeverity(SeveritySuccess), 1, "the local add still reports success")
}

func TestUpdateEventLocalOnlySkipsRemote(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)
	f.gateway.mu.Lock()
	f.gateway.insertCalls = 0
	f.gateway.mu.Unlock()

	// Strip the mirror to simulate a local-only event.
	local := event
	local.RemoteID = ""
	require.NoError(t, f.store.Dispatch(store.Update{Event: local}))

	updated, outcome, err := f.coord.UpdateEvent(context.Background(), event.ID, testDraft("Long hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeLocalSuccess, outcome)
	assert.Equal(t, 0, f.gateway.patchCalls, "no remote id means no remote call")
	assert.Equal(t, "Long hike", updated.Title)
}

func TestUpdateEventRemoteConfirmed(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)

	updated, outcome, err := f.coord.UpdateEvent(context.Background(), event.ID, testDraft("Long hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoteConfirmed, outcome)
	assert.Equal(t, 1, f.gateway.patchCalls)
	assert.Equal(t, "gcal-123", f.gateway.lastPatchID)
	assert.Equal(t, "gcal-123", updated.RemoteID, "remote id preserved across edits")

	stored, ok := f.store.Get(event.ID)
	require.True(t, ok)
	assert.Equal(t, "Long hike", stored.Title)
}

func TestUpdateEventRemoteFailureStillAppliesLocally(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)
	f.gateway.patchErr = fmt.Errorf("calendar update failed: backend error")

	_, outcome, err := f.coord.UpdateEvent(context.Background(), event.ID, testDraft("Long hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoteFailedLocalApplied, outcome)

	stored, ok := f.store.Get(event.ID)
	require.True(t, ok)
	assert.Equal(t, "Long hike", stored.Title, "the local edit always lands")
	assert.Len(t, f.notifier.bySeverity(SeverityError), 1)
}

func TestUpdateEventUnknownIDIsSilentMiss(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	_, outcome, err := f.coord.UpdateEvent(context.Background(), "ghost", testDraft("Nothing"))
	require.NoError(t, err, "unknown id is a no-op, not an error")

	assert.Equal(t, OutcomeLocalSuccess, outcome)
	assert.Equal(t, 0, f.gateway.patchCalls)
	assert.Equal(t, 0, f.store.Len())
}

func TestRemoveEventIssuesOneDelete(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)

	outcome, err := f.coord.RemoveEvent(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoteConfirmed, outcome)
	assert.Equal(t, 1, f.gateway.deleteCalls, "exactly one delete call")
	assert.Equal(t, "gcal-123", f.gateway.lastDeleteID, "delete targets the mirrored id")
	assert.Equal(t, 0, f.store.Len())
}

func TestRemoveEventRemoteFailureStillRemovesLocally(t *testing.T) {
	f := newFixture(t, authenticatedTokens())

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)
	f.gateway.deleteErr = fmt.Errorf("calendar delete failed: not found")

	outcome, err := f.coord.RemoveEvent(context.Background(), event.ID)
	require.NoError(t, err, "local deletion is never blocked by remote failure")

	assert.Equal(t, OutcomeRemoteFailedLocalApplied, outcome)
	assert.Equal(t, 0, f.store.Len(), "the user's intent to remove is final locally")
	assert.Len(t, f.notifier.bySeverity(SeverityError), 1)
}

func TestRemoveEventLocalOnlySkipsRemote(t *testing.T) {
	f := newFixture(t, NewTokenManager(&countingTransport{}, nil))

	event, _, err := f.coord.AddEvent(context.Background(), testDraft("Hike"))
	require.NoError(t, err)

	_, err = f.coord.RemoveEvent(context.Background(), event.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.gateway.deleteCalls)
	assert.Equal(t, 0, f.store.Len())
}

func TestReorderEventsNeverTouchesRemote(t *testing.T) {
	transport := &countingTransport{}
	tokens := signedInManager(transport, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute), // would force a refresh if consulted
	})
	f := newFixture(t, tokens)

	a, b := models.NewEvent(testDraft("Hike")), models.NewEvent(testDraft("Brunch"))
	require.NoError(t, f.store.Dispatch(store.Add{Event: a}))
	require.NoError(t, f.store.Dispatch(store.Add{Event: b}))

	outcome, err := f.coord.ReorderEvents(context.Background(), []models.Event{b, a})
	require.NoError(t, err)

	assert.Equal(t, OutcomeLocalSuccess, outcome)
	assert.Equal(t, 0, transport.callCount(), "reorder must not consult the token manager")
	assert.Equal(t, 0, f.gateway.insertCalls+f.gateway.patchCalls+f.gateway.deleteCalls)

	events := f.store.Events()
	assert.Equal(t, b.ID, events[0].ID)
	assert.Equal(t, a.ID, events[1].ID)
}

func TestExpiredTokenRefreshedBeforeRemoteUpdate(t *testing.T) {
	// Sign-in issued a token expiring in 5 minutes; the edit happens after
	// expiry, so the manager must refresh before the patch goes out.
	transport := &countingTransport{
		result: &oauth2.Token{
			AccessToken: "renewed-token",
			Expiry:      time.Now().Add(time.Hour),
		},
	}
	tokens := signedInManager(transport, &oauth2.Token{
		AccessToken:  "expired-token",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Minute),
	})
	f := newFixture(t, tokens)

	event := models.NewEvent(testDraft("Hike"))
	event.RemoteID = "gcal-123"
	require.NoError(t, f.store.Dispatch(store.Add{Event: event}))

	_, outcome, err := f.coord.UpdateEvent(context.Background(), event.ID, testDraft("Long hike"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeRemoteConfirmed, outcome)
	assert.Equal(t, 1, transport.callCount(), "exactly one refresh before the edit's remote call")
	assert.Equal(t, "renewed-token", f.gateway.lastToken, "the patch uses the refreshed token")
}
