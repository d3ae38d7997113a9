package translation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// resolutionsTotal counts message resolutions by the tier that produced the
// final text: identity, cache, phrase, provider, offline or passthrough.
var resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "babelbridge_translation_resolutions_total",
	Help: "Translation resolutions by resolving tier.",
}, []string{"tier"})

// providerErrorsTotal counts failed external translation calls. Failures are
// silent toward callers, so this is the only place they surface.
var providerErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "babelbridge_translation_provider_errors_total",
	Help: "External translation provider call failures.",
})
