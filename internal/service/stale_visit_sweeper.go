package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// StaleVisitCompleter is the operation the sweeper runs on every tick.
type StaleVisitCompleter interface {
	AutoCompleteStale(ctx context.Context) (int64, error)
}

const sweepTimeout = 30 * time.Second

// StaleVisitSweeper periodically closes visits left open on previous days. Reads of
// today's list sweep as well, so a missed tick only delays the cleanup.
type StaleVisitSweeper struct {
	completer StaleVisitCompleter
	log       *logrus.Logger
	interval  time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
}

func NewStaleVisitSweeper(completer StaleVisitCompleter, log *logrus.Logger, interval time.Duration) *StaleVisitSweeper {
	return &StaleVisitSweeper{
		completer: completer,
		log:       log,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (s *StaleVisitSweeper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go s.loop()
}

// Stop waits for an in-flight sweep to finish.
// Safe to call multiple times.
func (s *StaleVisitSweeper) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("StaleVisitSweeper stopped")
	}
}

func (s *StaleVisitSweeper) loop() {
	defer s.wg.Done()

	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep never returns an error: a failed run is logged and retried on the next tick.
func (s *StaleVisitSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.completer.AutoCompleteStale(ctx)
	if err != nil {
		s.log.Warnf("Failed stale visit sweep: %+v", err)
		return
	}
	s.log.Debugf("Stale visit sweep done: %d visit(s) completed", n)
}
