package state

import (
	"context"
	"hash/maphash"
	"sync"
	"time"
)

const counterShards = 64

type counterShard struct {
	mu      sync.Mutex
	windows map[CounterKey][]time.Time
}

// MemoryCounterStore is the in-process CounterStore. Keys are spread over a
// fixed set of mutex-guarded shards so unrelated guilds and actors rarely
// share a lock.
type MemoryCounterStore struct {
	seed   maphash.Seed
	shards [counterShards]counterShard
}

func NewMemoryCounterStore() *MemoryCounterStore {
	s := &MemoryCounterStore{seed: maphash.MakeSeed()}
	for i := range s.shards {
		s.shards[i].windows = make(map[CounterKey][]time.Time)
	}
	return s
}

func (s *MemoryCounterStore) shard(key CounterKey) *counterShard {
	var h maphash.Hash
	h.SetSeed(s.seed)
	h.WriteString(key.GuildID)
	h.WriteByte(0)
	h.WriteString(key.ActorID)
	h.WriteByte(byte(key.Category))
	return &s.shards[h.Sum64()%counterShards]
}

// prune must be called with the shard lock held.
func (sh *counterShard) prune(key CounterKey, now time.Time, window time.Duration) []time.Time {
	entries := sh.windows[key]
	kept := entries[:0]
	for _, t := range entries {
		if !expired(t, now, window) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(sh.windows, key)
		return nil
	}
	sh.windows[key] = kept
	return kept
}

func (s *MemoryCounterStore) Record(_ context.Context, key CounterKey, now time.Time, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return sh.record(key, now, window), nil
}

func (sh *counterShard) record(key CounterKey, now time.Time, window time.Duration) int {
	kept := append(sh.prune(key, now, window), now)
	sh.windows[key] = kept
	return len(kept)
}

func (s *MemoryCounterStore) Peek(_ context.Context, key CounterKey, now time.Time, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return len(sh.prune(key, now, window)), nil
}

func (s *MemoryCounterStore) Clear(_ context.Context, key CounterKey) error {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.windows, key)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryCounterStore) RecordBreach(_ context.Context, key CounterKey, now time.Time, window time.Duration, threshold int) (int, bool, error) {
	if window <= 0 {
		return 0, false, ErrInvalidWindow
	}
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	count := sh.record(key, now, window)
	if count >= threshold {
		delete(sh.windows, key)
		return count, true, nil
	}
	return count, false, nil
}

// Len reports how many keys currently hold entries. Stale keys are only
// removed when touched, so this is an upper bound on live windows.
func (s *MemoryCounterStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}
