package policy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
)

// ErrNotWritable is returned when saving a policy that is not backed by a local file
var ErrNotWritable = errors.New("policy source is not a local file")

// SwapFunc is called after a new snapshot has been installed
type SwapFunc func(previous, current *Snapshot)

// Store holds the active policy snapshot. Readers always see a complete
// snapshot; reloads and saves install a new one atomically and never modify
// the snapshot in place.
type Store struct {
	current atomic.Pointer[Snapshot]
	cfg     *Config
	log     logger.Logger

	mu     sync.Mutex
	onSwap []SwapFunc
}

// NewStore creates a store serving snap, reloading from cfg
func NewStore(snap *Snapshot, cfg *Config, log logger.Logger) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{cfg: cfg, log: log}
	s.current.Store(snap)
	return s
}

// Open loads the initial snapshot from cfg and returns a store serving it
func Open(ctx context.Context, cfg *Config, log logger.Logger) (*Store, error) {
	snap, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(snap, cfg, log), nil
}

// Current returns the active snapshot
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Config returns the source configuration of the store
func (s *Store) Config() *Config {
	return s.cfg
}

// OnSwap registers a callback run after every successful swap
func (s *Store) OnSwap(fn SwapFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Replace installs snap and returns the snapshot it replaced
func (s *Store) Replace(snap *Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swapLocked(snap)
}

func (s *Store) swapLocked(snap *Snapshot) *Snapshot {
	previous := s.current.Swap(snap)
	s.log.Info("Policy snapshot installed",
		logger.String("version", snap.Version()),
		logger.String("digest", snap.Digest()),
		logger.Int("owners", snap.Len()),
	)
	for _, fn := range s.onSwap {
		fn(previous, snap)
	}
	return previous
}

// Reload loads the policy again from its source and installs it. The
// active snapshot is kept when loading fails.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := Load(ctx, s.cfg)
	if err != nil {
		s.log.Warn("Policy reload failed, keeping current snapshot", logger.Error(err))
		return nil, err
	}
	s.swapLocked(snap)
	return snap, nil
}

// Save validates data, writes it to the policy file and installs it
func (s *Store) Save(data []byte) (*Snapshot, error) {
	if s.cfg.Path == "" || s.cfg.URL != "" {
		return nil, ErrNotWritable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := Save(s.cfg.Path, data)
	if err != nil {
		return nil, err
	}
	s.swapLocked(snap)
	return snap, nil
}
