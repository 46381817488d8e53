package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls when a generator stops calling a failing service.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerGenerator guards a TextGenerator with a circuit breaker so a failing
// model endpoint fails requests fast instead of holding them for the full
// call timeout. An open breaker surfaces gobreaker.ErrOpenState.
type BreakerGenerator struct {
	next TextGenerator
	cb   *gobreaker.CircuitBreaker[ContentResponse]
}

// NewBreakerGenerator wraps next with a breaker.
func NewBreakerGenerator(next TextGenerator, cfg BreakerConfig, logger zerolog.Logger) *BreakerGenerator {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[ContentResponse](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("llm circuit breaker state change")
		},
	})
	return &BreakerGenerator{next: next, cb: cb}
}

func (b *BreakerGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return b.cb.Execute(func() (ContentResponse, error) {
		return b.next.GenerateContent(ctx, prompt)
	})
}

// State reports the breaker's current state.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.cb.State()
}
