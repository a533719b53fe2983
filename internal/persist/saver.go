package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// ErrSaverClosed is returned by Submit after Close.
var ErrSaverClosed = errors.New("saver closed")

// Saver serializes SaveAll calls. At most one save runs at a time; a
// submission made while a save is in flight replaces any earlier pending
// one, so the last submitted snapshot is always the last one saved.
type Saver struct {
	gw     types.Gateway
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  *types.Snapshot
	running  bool
	idle     chan struct{} // closed when the worker goes idle
	closed   bool
	lastErr  error
	saves    int
	onResult func(error)
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithSaverLogger sets the logger for save failures.
func WithSaverLogger(l *slog.Logger) SaverOption {
	return func(s *Saver) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnResult registers fn to receive the outcome of every completed save. It
// runs on the saver goroutine.
func OnResult(fn func(error)) SaverOption {
	return func(s *Saver) { s.onResult = fn }
}

// NewSaver returns an idle saver writing through gw.
func NewSaver(gw types.Gateway, opts ...SaverOption) *Saver {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Saver{
		gw:     gw,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
		idle:   closedChan(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Submit schedules snap for saving and returns immediately.
func (s *Saver) Submit(snap types.Snapshot) error {
	snap = snap.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSaverClosed
	}
	s.pending = &snap
	if !s.running {
		s.running = true
		s.idle = make(chan struct{})
		go s.loop()
	}
	return nil
}

func (s *Saver) loop() {
	for {
		s.mu.Lock()
		if s.pending == nil {
			s.running = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		snap := *s.pending
		s.pending = nil
		s.mu.Unlock()

		err := s.gw.SaveAll(s.ctx, snap)
		if err != nil {
			s.logger.Error("save failed", "plants", len(snap.Plants), "lawns", len(snap.Lawns), "err", err)
		} else {
			s.logger.Debug("saved", "plants", len(snap.Plants), "lawns", len(snap.Lawns))
		}

		s.mu.Lock()
		s.lastErr = err
		s.saves++
		fn := s.onResult
		s.mu.Unlock()
		if fn != nil {
			fn(err)
		}
	}
}

// Flush waits until no save is running or pending, then returns the result
// of the last completed save.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.LastError()
}

// LastError returns the result of the last completed save.
func (s *Saver) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Saves returns the number of completed saves.
func (s *Saver) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Close rejects further submissions, waits for pending work, and releases
// the save context. ctx bounds the wait; on expiry the in-flight save is
// cancelled.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)
	s.cancel()
	return err
}
