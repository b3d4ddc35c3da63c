package rotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Config controls the rotation cadence and capacities. Zero values fall back
// to the package defaults.
type Config struct {
	// PhotosPerWindow is the size of the current set.
	PhotosPerWindow int

	// FetchBatchSize is how many photos a single supply call requests.
	// Over-fetching feeds the overflow queue and amortizes supply calls.
	FetchBatchSize int

	// MaxHistory bounds the history log.
	MaxHistory int

	// WindowDuration is how long a refreshed set stays fresh.
	WindowDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.PhotosPerWindow <= 0 {
		c.PhotosPerWindow = DefaultPhotosPerWindow
	}
	if c.FetchBatchSize <= 0 {
		c.FetchBatchSize = DefaultFetchBatchSize
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = DefaultMaxHistory
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = DefaultWindowDuration
	}
	return c
}

// Manager owns the current photo set and decides, from the injected clock,
// when to refresh it. Refreshes drain the overflow queue before issuing a
// single batched supply fetch; surplus from the fetch goes back into the
// queue and every selected photo is recorded into the history log.
//
// Refreshes are serialized: concurrent callers that observe an expired
// window join the one in-flight refresh and share its outcome, success or
// failure, without issuing their own supply fetch. Reads of a fresh set take
// only a read lock.
type Manager struct {
	cfg     Config
	fetcher Fetcher
	queue   *OverflowQueue
	history *HistoryLog

	flight singleflight.Group

	mu              sync.RWMutex
	currentSet      []Photo
	windowStartedAt time.Time // zero until the first successful refresh
}

// NewManager creates a rotation manager with empty containers and an
// uninitialized window. The first CurrentPhotos call always refreshes.
func NewManager(fetcher Fetcher, cfg Config) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		fetcher: fetcher,
		queue:   NewOverflowQueue(),
		history: NewHistoryLog(cfg.withDefaults().MaxHistory),
	}
}

// CurrentPhotos returns the photo set for the window containing now,
// refreshing it first if the active window has expired. Within a window the
// call is idempotent. It returns either a full fresh/cached set or an error,
// never a partial set; a failed refresh leaves all state as it was.
//
// The supply fetch is the only operation here that can block on the network;
// ctx bounds it. The cache itself imposes no timeout, so a hung fetch holds
// the refresh until the caller's ctx resolves it.
func (m *Manager) CurrentPhotos(ctx context.Context, now time.Time) ([]Photo, error) {
	if set, ok := m.freshSet(now); ok {
		return set, nil
	}

	v, err, shared := m.flight.Do("refresh", func() (interface{}, error) {
		// A refresh that completed while this caller was queueing behind
		// the flight may already have made the window fresh.
		if set, ok := m.freshSet(now); ok {
			return set, nil
		}
		return m.refresh(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("Joined in-flight rotation refresh")
	}
	return v.([]Photo), nil
}

// HistorySnapshot returns every recorded history entry, oldest first.
func (m *Manager) HistorySnapshot() []HistoryEntry {
	return m.history.Snapshot()
}

// WindowStartedAt returns when the active window began, zero before the
// first successful refresh.
func (m *Manager) WindowStartedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windowStartedAt
}

// QueueLen reports how many surplus photos are waiting in the overflow queue.
func (m *Manager) QueueLen() int {
	return m.queue.Len()
}

// freshSet returns a copy of the current set if the window containing now
// has not expired. An unset window start counts as expired.
func (m *Manager) freshSet(now time.Time) ([]Photo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.windowStartedAt.IsZero() || now.Sub(m.windowStartedAt) >= m.cfg.WindowDuration {
		return nil, false
	}

	set := make([]Photo, len(m.currentSet))
	copy(set, m.currentSet)
	return set, true
}

// refresh builds a new current set for the window starting at now. Only ever
// executed by the single-flight winner.
func (m *Manager) refresh(ctx context.Context, now time.Time) ([]Photo, error) {
	refreshID := uuid.New().String()
	needed := m.cfg.PhotosPerWindow

	// Queue first: photos already paid for are used before fetching again.
	selected := m.queue.DequeueUpTo(needed)
	fromQueue := len(selected)
	fetched := 0

	if len(selected) < needed {
		batch, err := m.fetcher.RandomPhotos(ctx, m.cfg.FetchBatchSize)
		if err != nil {
			// Abort without a trace: drained photos go back to the head so
			// the next attempt finds the queue as this one did.
			m.queue.requeueFront(selected)
			log.Error().
				Err(err).
				Str("refresh_id", refreshID).
				Int("from_queue", fromQueue).
				Msg("Rotation refresh aborted, supply fetch failed")
			return nil, fmt.Errorf("refresh rotation window: %w", err)
		}
		if len(batch) != m.cfg.FetchBatchSize {
			log.Warn().
				Str("refresh_id", refreshID).
				Int("requested", m.cfg.FetchBatchSize).
				Int("returned", len(batch)).
				Msg("Supply batch length differs from request")
		}

		take := needed - len(selected)
		if take > len(batch) {
			take = len(batch)
		}
		selected = append(selected, batch[:take]...)
		m.queue.EnqueueMany(batch[take:])
		fetched = take
	}

	for _, p := range selected {
		m.history.Record(p, now)
	}

	m.mu.Lock()
	m.currentSet = selected
	m.windowStartedAt = now
	m.mu.Unlock()

	log.Info().
		Str("refresh_id", refreshID).
		Int("photos", len(selected)).
		Int("from_queue", fromQueue).
		Int("fetched", fetched).
		Int("queued", m.queue.Len()).
		Time("window_started_at", now).
		Msg("Rotation window refreshed")

	set := make([]Photo, len(selected))
	copy(set, selected)
	return set, nil
}
