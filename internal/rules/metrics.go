package rules

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var observeOnce sync.Once

// ObserveStore registers a gauge that reports the store's active rule
// count on every scrape. Reads go through the store's atomic pointer,
// so the gauge always reflects the last completed reload. Only the
// first observed store in a process is exported.
func ObserveStore(s *Store) {
	observeOnce.Do(func() {
		promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "tagging_active_rules",
				Help: "Number of rules in the active rule set",
			},
			func() float64 { return float64(s.Active().Len()) },
		)
	})
}
