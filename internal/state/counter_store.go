package state

import (
	"context"
	"errors"
	"time"

	"github.com/drpramila84/600-commanddiscord/internal/models"
)

var ErrInvalidWindow = errors.New("window must be positive")

// CounterKey identifies one sliding window. Raid windows leave ActorID empty.
type CounterKey struct {
	GuildID  string
	ActorID  string
	Category models.Category
}

func ActorKey(guildID, actorID string, category models.Category) CounterKey {
	return CounterKey{GuildID: guildID, ActorID: actorID, Category: category}
}

func RaidKey(guildID string) CounterKey {
	return CounterKey{GuildID: guildID, Category: models.CategoryRaid}
}

func (k CounterKey) String() string {
	if k.ActorID == "" {
		return k.Category.String() + ":" + k.GuildID
	}
	return k.GuildID + ":" + k.ActorID + ":" + k.Category.String()
}

// CounterStore holds timestamp windows keyed by CounterKey. Every call prunes
// the entries of its key that are window or more old before answering.
// Implementations must serialize calls for the same key.
type CounterStore interface {
	// Record appends now and returns the pruned length.
	Record(ctx context.Context, key CounterKey, now time.Time, window time.Duration) (int, error)
	// Peek prunes without appending.
	Peek(ctx context.Context, key CounterKey, now time.Time, window time.Duration) (int, error)
	// Clear drops the key entirely.
	Clear(ctx context.Context, key CounterKey) error
	// RecordBreach is Record followed, in the same critical section, by Clear
	// when the count reached threshold. Concurrent events therefore observe
	// at most one breach per accumulation cycle.
	RecordBreach(ctx context.Context, key CounterKey, now time.Time, window time.Duration, threshold int) (int, bool, error)
}

func expired(t, now time.Time, window time.Duration) bool {
	return now.Sub(t) >= window
}
