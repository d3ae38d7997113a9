// Package translation resolves text between user languages and the canonical
// agent language through an ordered fallback chain: cache, curated phrase
// tables, an external provider, an offline dictionary, and finally
// passthrough. Translation failure never blocks message delivery.
package translation

import (
	"context"

	"babelbridge/internal/language"
)

// Tier is one strategy in the fallback chain. A false result means the tier
// could not translate the text and the chain moves on.
type Tier interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, bool)
}

// PhraseTier translates via pattern matching against the curated phrase
// tables: zero latency, zero cost, deterministic.
type PhraseTier struct{}

func (PhraseTier) Name() string { return "phrase" }

func (PhraseTier) Translate(_ context.Context, text, source, target string) (string, bool) {
	return matchPhrases(text, source, target)
}

// OfflineTier is the stricter dictionary lookup used after the external
// provider has failed, keeping catalogued phrases working with no network.
type OfflineTier struct{}

func (OfflineTier) Name() string { return "offline" }

func (OfflineTier) Translate(_ context.Context, text, source, target string) (string, bool) {
	return matchOffline(text, source, target)
}

// Resolver runs the fallback chain over a shared bounded cache.
type Resolver struct {
	cache *Cache
	tiers []Tier
}

// NewResolver builds a resolver over the given cache and ordered tiers.
func NewResolver(cache *Cache, tiers ...Tier) *Resolver {
	return &Resolver{cache: cache, tiers: tiers}
}

// DefaultTiers returns the standard chain: phrase tables, external provider,
// offline dictionary.
func DefaultTiers(provider *Provider) []Tier {
	return []Tier{PhraseTier{}, provider, OfflineTier{}}
}

// Resolve translates text from sourceLang to targetLang. declaredLang is the
// language the user selected, which drives the script-mismatch heuristic:
// Latin-script text declared as a non-Latin language is re-routed through
// auto-detection. On total failure the original text is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, text, sourceLang, targetLang, declaredLang string) string {
	source := language.Normalize(sourceLang, language.Auto)
	target := language.Normalize(targetLang, "en")
	declared := language.Normalize(declaredLang, "en")

	if source == target && source != language.Auto {
		resolutionsTotal.WithLabelValues("identity").Inc()
		return text
	}

	effectiveSource := source
	if language.SourceLang(text, declared) == language.Auto {
		effectiveSource = language.Auto
	}

	if cached, ok := r.cache.Get(effectiveSource, target, text); ok {
		resolutionsTotal.WithLabelValues("cache").Inc()
		return cached
	}

	for _, tier := range r.tiers {
		if translated, ok := tier.Translate(ctx, text, effectiveSource, target); ok {
			r.cache.Put(effectiveSource, target, text, translated)
			resolutionsTotal.WithLabelValues(tier.Name()).Inc()
			return translated
		}
	}

	resolutionsTotal.WithLabelValues("passthrough").Inc()
	return text
}

// UserToAgent translates a widget message into the canonical agent language.
func (r *Resolver) UserToAgent(ctx context.Context, text, userLang string) string {
	return r.Resolve(ctx, text, userLang, language.AgentLang, userLang)
}

// AgentToUser translates an agent reply into the user's language. English
// users get the text untouched.
func (r *Resolver) AgentToUser(ctx context.Context, text, userLang string) string {
	normalized := language.Normalize(userLang, "en")
	if normalized == language.AgentLang {
		return text
	}
	// Agent text is trusted English; declaring it as such keeps the
	// script-mismatch heuristic from re-routing through auto-detection.
	return r.Resolve(ctx, text, language.AgentLang, normalized, language.AgentLang)
}
