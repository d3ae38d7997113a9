package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newLocalesTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dir := t.TempDir()
	writeLocale := func(lang string, strings map[string]string) {
		data, _ := json.Marshal(strings)
		if err := os.WriteFile(filepath.Join(dir, lang+".json"), data, 0o644); err != nil {
			t.Fatalf("failed to write locale fixture: %v", err)
		}
	}
	writeLocale("en", map[string]string{"send": "Send"})
	writeLocale("hi", map[string]string{"send": "भेजें"})

	app := fiber.New()
	app.Get("/locales/:lang", NewLocalesHandler(dir).Handle)
	return app
}

func TestLocalesServesBundle(t *testing.T) {
	app := newLocalesTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/locales/hi", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Fatalf("unexpected Cache-Control: %q", cc)
	}

	body, _ := io.ReadAll(resp.Body)
	var bundle map[string]string
	if err := json.Unmarshal(body, &bundle); err != nil {
		t.Fatalf("invalid bundle JSON: %v", err)
	}
	if bundle["send"] != "भेजें" {
		t.Fatalf("expected Hindi strings, got %+v", bundle)
	}
}

func TestLocalesUnsupportedLanguage(t *testing.T) {
	app := newLocalesTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/locales/xx", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported code, got %d", resp.StatusCode)
	}
}

func TestLocalesFallsBackToEnglish(t *testing.T) {
	app := newLocalesTestApp(t)

	// bn is supported but has no bundle on disk
	resp, err := app.Test(httptest.NewRequest("GET", "/locales/bn", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 with fallback, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var bundle map[string]string
	if err := json.Unmarshal(body, &bundle); err != nil {
		t.Fatalf("invalid bundle JSON: %v", err)
	}
	if bundle["send"] != "Send" {
		t.Fatalf("expected English fallback strings, got %+v", bundle)
	}
}

func TestLocalesCorruptBundleFallsBack(t *testing.T) {
	dir := t.TempDir()
	en, _ := json.Marshal(map[string]string{"send": "Send"})
	if err := os.WriteFile(filepath.Join(dir, "en.json"), en, 0o644); err != nil {
		t.Fatalf("failed to write locale fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ta.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt fixture: %v", err)
	}

	app := fiber.New()
	app.Get("/locales/:lang", NewLocalesHandler(dir).Handle)

	resp, err := app.Test(httptest.NewRequest("GET", "/locales/ta", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected English fallback for corrupt bundle, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var bundle map[string]string
	if err := json.Unmarshal(body, &bundle); err != nil {
		t.Fatalf("invalid bundle JSON: %v", err)
	}
	if bundle["send"] != "Send" {
		t.Fatalf("expected English strings, got %+v", bundle)
	}
}

func TestLocalesNormalizesRegionSubtag(t *testing.T) {
	app := newLocalesTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/locales/hi-IN", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for hi-IN, got %d", resp.StatusCode)
	}
}
