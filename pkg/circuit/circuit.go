// Package circuit builds the circuit breakers wrapped around remote HTTP
// APIs.
package circuit

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/farmbot-watering/pkg/logging"
)

type Settings struct {
	Fails    int           // consecutive failures before opening, default 5
	OpenFor  time.Duration // how long the breaker stays open, default 30s
	Interval time.Duration // reset period of the closed-state counts, 0 = never
}

// New returns a breaker that opens after s.Fails consecutive failures.
func New(name string, s Settings) *gobreaker.CircuitBreaker {
	if s.Fails < 1 {
		s.Fails = 5
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: s.Interval,
		Timeout:  s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(s.Fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
