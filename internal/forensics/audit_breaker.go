package forensics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/drpramila84/600-commanddiscord/internal/logging"
)

type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Interval         time.Duration
}

// BreakerAuditSource stops calling the audit log of a guild whose lookups
// keep failing, so its handlers drop events immediately instead of each
// waiting on a dead API. Every guild has its own breaker: one guild's
// failures never cut off attribution for another.
type BreakerAuditSource struct {
	next     AuditSource
	settings BreakerSettings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*AuditEntry]
}

func NewBreakerAuditSource(next AuditSource, s BreakerSettings) *BreakerAuditSource {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	return &BreakerAuditSource{
		next:     next,
		settings: s,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*AuditEntry]),
	}
}

func (b *BreakerAuditSource) breaker(guildID string) *gobreaker.CircuitBreaker[*AuditEntry] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[guildID]; ok {
		return cb
	}
	threshold := b.settings.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*AuditEntry](gobreaker.Settings{
		Name:         "audit-log:" + guildID,
		MaxRequests:  1,
		Interval:     b.settings.Interval,
		Timeout:      b.settings.OpenTimeout,
		IsSuccessful: countsAsSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("guild", guildID).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Audit log circuit breaker changed state")
		},
	})
	b.breakers[guildID] = cb
	return cb
}

// countsAsSuccess keeps client errors such as a revoked View Audit Log
// permission (403) from tripping the breaker. They still fail the lookup.
// Transport errors, 5xx and 429 count as failures.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		code := rest.Response.StatusCode
		return code >= 400 && code < 500 && code != http.StatusTooManyRequests
	}
	return false
}

func (b *BreakerAuditSource) FetchLatest(ctx context.Context, guildID string, action discordgo.AuditLogAction) (*AuditEntry, error) {
	return b.breaker(guildID).Execute(func() (*AuditEntry, error) {
		return b.next.FetchLatest(ctx, guildID, action)
	})
}

// State reports the breaker state of one guild. Guilds never seen are closed.
func (b *BreakerAuditSource) State(guildID string) gobreaker.State {
	b.mu.Lock()
	cb, ok := b.breakers[guildID]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}
