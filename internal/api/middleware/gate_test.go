package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/agrovagas/platform/internal/core/domain"
)

func runGate(t *testing.T, areaName string, user *domain.User) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	area, ok := domain.FindArea(areaName)
	if !ok {
		t.Fatalf("unknown area %q", areaName)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, area.Path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(userKey, user)
	}

	called := false
	handler := Gate(area, GateConfig{})(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, called
}

func TestGate_Allows(t *testing.T) {
	rec, called := runGate(t, "post-job", &domain.User{ID: "u1", Role: domain.RoleEmployer})
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestGate_WrongRoleRedirectsToNeutral(t *testing.T) {
	rec, called := runGate(t, "post-job", &domain.User{ID: "u1", Role: domain.RoleProfessional})
	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != domain.NeutralPath {
		t.Fatalf("expected redirect to %s, got %s", domain.NeutralPath, loc)
	}
}

func TestGate_AnonymousRedirectsToEntry(t *testing.T) {
	rec, called := runGate(t, "jobs", nil)
	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != domain.EntryPath {
		t.Fatalf("expected redirect to %s, got %s", domain.EntryPath, loc)
	}
}

func TestGate_AnyRoleArea(t *testing.T) {
	for _, role := range domain.Roles {
		_, called := runGate(t, "dashboard", &domain.User{ID: "u1", Role: role})
		if !called {
			t.Fatalf("%s should reach the dashboard", role)
		}
	}
	if _, called := runGate(t, "dashboard", nil); called {
		t.Fatalf("anonymous request should not reach the dashboard")
	}
}

func TestGate_PublicArea(t *testing.T) {
	if _, called := runGate(t, "landing", nil); !called {
		t.Fatalf("public area should admit anonymous requests")
	}
}

func TestGate_CustomPaths(t *testing.T) {
	area, _ := domain.FindArea("jobs")
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, area.Path, nil), rec)

	handler := Gate(area, GateConfig{EntryPath: "/entrar", NeutralPath: "/painel"})(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/entrar" {
		t.Fatalf("expected redirect to /entrar, got %s", loc)
	}
}
