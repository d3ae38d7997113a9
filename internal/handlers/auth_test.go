package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"babelbridge/internal/config"
	"babelbridge/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

func newAuthTestApp(t *testing.T) (*fiber.App, *auth.TokenService) {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		ValidSiteKeys: []string{"VALID_KEY"},
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}

	app := fiber.New()
	app.Get("/auth", NewAuthHandler(cfg, tokens).Handle)
	return app, tokens
}

func TestAuthMissingSiteKey(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/auth", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAuthInvalidSiteKey(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/auth?siteKey=WRONG", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthIssuesVerifiableToken(t *testing.T) {
	app, tokens := newAuthTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/auth?siteKey=VALID_KEY", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Success      bool     `json:"success"`
		SessionID    string   `json:"sessionId"`
		SessionToken string   `json:"sessionToken"`
		Languages    []string `json:"allowedLanguages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !payload.Success || payload.SessionID == "" || payload.SessionToken == "" {
		t.Fatalf("incomplete response: %+v", payload)
	}
	if len(payload.Languages) == 0 {
		t.Fatal("expected allowed languages in response")
	}

	claims, err := tokens.Verify(payload.SessionToken)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if claims.SessionID != payload.SessionID || claims.SiteKey != "VALID_KEY" {
		t.Fatalf("token claims do not match response: %+v", claims)
	}
}
