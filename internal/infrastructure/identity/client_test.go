package identity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/core/domain"
)

type recorded struct {
	event domain.SessionEvent
	sess  *domain.Session
}

func newTestClient(t *testing.T) (*Client, *Provider, *[]recorded) {
	t.Helper()
	p, _, _ := newTestProvider(testConfig())
	c := NewClient(p, nil, zerolog.Nop())
	var events []recorded
	c.OnSessionChanged(func(e domain.SessionEvent, s *domain.Session) {
		events = append(events, recorded{e, s})
	})
	return c, p, &events
}

func TestClient_SignInEmitsAndStoresSession(t *testing.T) {
	c, p, events := newTestClient(t)
	ctx := context.Background()
	if _, err := p.SignUp(ctx, "ana@campo.br", "secret1", nil); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	sess, err := c.SignIn(ctx, "ana@campo.br", "secret1")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if len(*events) != 1 || (*events)[0].event != domain.EventSignedIn {
		t.Fatalf("expected one SIGNED_IN event, got %+v", *events)
	}

	cur, err := c.CurrentSession(ctx)
	if err != nil || cur == nil || cur.AccessToken != sess.AccessToken {
		t.Fatalf("expected current session to match, got %+v (%v)", cur, err)
	}
}

func TestClient_FailedSignInEmitsNothing(t *testing.T) {
	c, _, events := newTestClient(t)
	if _, err := c.SignIn(context.Background(), "ana@campo.br", "nope"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(*events) != 0 {
		t.Fatalf("expected no events, got %+v", *events)
	}
}

func TestClient_SignOut(t *testing.T) {
	c, _, events := newTestClient(t)
	ctx := context.Background()

	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut without session returned error: %v", err)
	}
	if len(*events) != 0 {
		t.Fatalf("expected no events without a session, got %+v", *events)
	}

	res, err := c.SignUp(ctx, "ana@campo.br", "secret1", nil)
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if err := c.SignOut(ctx); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	last := (*events)[len(*events)-1]
	if last.event != domain.EventSignedOut || last.sess != nil {
		t.Fatalf("expected SIGNED_OUT with no session, got %+v", last)
	}
	if cur, _ := c.CurrentSession(ctx); cur != nil {
		t.Fatalf("expected no session after sign-out")
	}
	if _, err := c.provider.Verify(ctx, res.Session.AccessToken); err == nil {
		t.Fatalf("expected signed-out token to be revoked")
	}
}

func TestClient_RefreshEmitsTokenRefreshed(t *testing.T) {
	c, _, events := newTestClient(t)
	ctx := context.Background()
	res, err := c.SignUp(ctx, "ana@campo.br", "secret1", nil)
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	next, err := c.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if next.AccessToken == res.Session.AccessToken {
		t.Fatalf("expected a new token")
	}
	if last := (*events)[len(*events)-1]; last.event != domain.EventTokenRefreshed {
		t.Fatalf("expected TOKEN_REFRESHED, got %s", last.event)
	}
}

func TestClient_ExpiredSessionIsDroppedSilently(t *testing.T) {
	c, _, events := newTestClient(t)
	ctx := context.Background()
	if _, err := c.SignUp(ctx, "ana@campo.br", "secret1", nil); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	before := len(*events)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	cur, err := c.CurrentSession(ctx)
	if err != nil || cur != nil {
		t.Fatalf("expected no session, got %+v (%v)", cur, err)
	}
	if len(*events) != before {
		t.Fatalf("expected no events for a silently dropped session")
	}
}

func TestClient_UnsubscribeStopsDelivery(t *testing.T) {
	p, _, _ := newTestProvider(testConfig())
	c := NewClient(p, nil, zerolog.Nop())
	calls := 0
	unsubscribe := c.OnSessionChanged(func(domain.SessionEvent, *domain.Session) { calls++ })
	unsubscribe()
	unsubscribe()

	if _, err := c.SignUp(context.Background(), "ana@campo.br", "secret1", nil); err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}

func TestClient_RestoresPersistedSession(t *testing.T) {
	p, _, _ := newTestProvider(testConfig())
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first := NewClient(p, NewFilePersister(path), zerolog.Nop())
	res, err := first.SignUp(ctx, "ana@campo.br", "secret1", domain.Attributes{domain.AttrRole: "employer"})
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	second := NewClient(p, NewFilePersister(path), zerolog.Nop())
	cur, err := second.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("CurrentSession returned error: %v", err)
	}
	if cur == nil || cur.AccessToken != res.Session.AccessToken {
		t.Fatalf("expected restored session, got %+v", cur)
	}
	if role, ok := cur.Identity.Attributes.RoleHint(); !ok || role != domain.RoleEmployer {
		t.Fatalf("expected refreshed identity attributes, got %v", cur.Identity.Attributes)
	}

	if err := second.SignOut(ctx); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	third := NewClient(p, NewFilePersister(path), zerolog.Nop())
	if cur, _ := third.CurrentSession(ctx); cur != nil {
		t.Fatalf("expected cleared session file")
	}
}
