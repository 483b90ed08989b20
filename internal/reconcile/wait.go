package reconcile

import (
	"context"
	"time"

	"github.com/ottermq/otterconf/internal/gateway"
	"github.com/rs/zerolog/log"
)

var pollInterval = time.Second

// WaitForBroker probes p every second until it reports live or timeout
// elapses. It reports whether the broker became reachable.
func WaitForBroker(ctx context.Context, p gateway.Pinger, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		if p.Ping(ctx) {
			log.Debug().Int("attempt", attempt).Msg("Broker is reachable")
			return true
		}
		if time.Now().Add(pollInterval).After(deadline) {
			return false
		}
		log.Debug().Int("attempt", attempt).Dur("interval", pollInterval).Msg("Broker not reachable yet, retrying")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}
