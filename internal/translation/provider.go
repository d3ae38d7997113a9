package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Provider calls a LibreTranslate-compatible HTTP endpoint. It is the only
// outbound network dependency of the resolver. Every failure mode (network,
// rate limit, malformed response) is reported as a miss so the fallback chain
// can proceed; no inline retry is attempted.
type Provider struct {
	url     string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewProvider creates a provider client with a bounded request timeout.
// A hung provider call becomes a timeout error, which the resolver treats
// as an ordinary tier miss.
func NewProvider(url, apiKey string, timeout time.Duration, rps int) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 5
	}
	return &Provider{
		url:     url,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Name identifies this tier in logs and metrics.
func (p *Provider) Name() string { return "provider" }

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate sends the text to the external provider. Returns false on any
// failure or when the local rate limit is exhausted.
func (p *Provider) Translate(ctx context.Context, text, source, target string) (string, bool) {
	if p.url == "" {
		return "", false
	}

	if !p.limiter.Allow() {
		log.Printf("[TRANSLATE] Provider rate limit hit, skipping external call")
		providerErrorsTotal.Inc()
		return "", false
	}

	translated, err := p.call(ctx, text, source, target)
	if err != nil {
		log.Printf("[TRANSLATE] Provider call failed: %v", err)
		providerErrorsTotal.Inc()
		return "", false
	}
	if translated == "" {
		return "", false
	}

	return translated, true
}

func (p *Provider) call(ctx context.Context, text, source, target string) (string, error) {
	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return result.TranslatedText, nil
}
