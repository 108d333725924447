package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Link-flow Prometheus metrics. They live in a standalone package so both
// the services and the HTTP layer can record without import cycles.

var (
	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryn_tokens_issued_total",
		Help: "Link tokens issued",
	})

	TokensPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryn_tokens_purged_total",
		Help: "Expired or consumed tokens removed by the purge job",
	})

	LinksCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentryn_links_completed_total",
		Help: "Successful Discord-Steam binds",
	})

	LinkFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentryn_link_failures_total",
		Help: "Link attempts refused, by reason code",
	}, []string{"reason"})
)

// Register registers the link metrics on the given registry (or the default
// registry if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	for _, collector := range []prometheus.Collector{
		TokensIssued,
		TokensPurged,
		LinksCompleted,
		LinkFailures,
	} {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}
