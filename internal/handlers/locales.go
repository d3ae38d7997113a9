package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"babelbridge/internal/language"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
)

// LocalesHandler serves per-language UI string bundles from disk with an
// in-process TTL cache in front of the filesystem.
type LocalesHandler struct {
	dir   string
	cache *gocache.Cache
}

// NewLocalesHandler creates a locales handler rooted at dir.
func NewLocalesHandler(dir string) *LocalesHandler {
	return &LocalesHandler{
		dir:   dir,
		cache: gocache.New(1*time.Hour, 10*time.Minute),
	}
}

// Handle returns the locale bundle for :lang. Unsupported codes are a 400;
// a supported code whose file is missing falls back to English.
func (h *LocalesHandler) Handle(c *fiber.Ctx) error {
	lang := language.Normalize(c.Params("lang"), "")
	if lang == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Unsupported language code",
		})
	}

	bundle, err := h.load(lang)
	if err != nil {
		if lang == language.Default {
			log.Printf("[LOCALES] Default bundle unavailable: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Locale data unavailable",
			})
		}
		log.Printf("[LOCALES] Missing bundle for %s, falling back to %s", lang, language.Default)
		bundle, err = h.load(language.Default)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Locale data unavailable",
			})
		}
	}

	c.Set("Cache-Control", "public, max-age=3600")
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Send(bundle)
}

// load reads (and validates) one bundle, caching the raw bytes.
func (h *LocalesHandler) load(lang string) ([]byte, error) {
	if cached, found := h.cache.Get(lang); found {
		return cached.([]byte), nil
	}

	data, err := os.ReadFile(filepath.Join(h.dir, lang+".json"))
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON in %s bundle", lang)
	}

	h.cache.Set(lang, data, gocache.DefaultExpiration)
	return data, nil
}
