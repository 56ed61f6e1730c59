package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"opd-room-tracker/pkg/clock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrSlotBusy is returned when the visit slot could not be acquired before the deadline.
var ErrSlotBusy = errors.New("visit slot is busy")

// releaseSlotScript deletes the lock only if it still holds our token, so a holder whose
// lease expired never releases somebody else's lock.
var releaseSlotScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

const (
	RedisSlotKeyPrefix = "visit:slot:"

	// Pause between SET NX attempts while another instance holds the slot
	slotRetryInterval = 25 * time.Millisecond

	// Timeout for the release round-trip, independent of the request context
	slotReleaseTimeout = 2 * time.Second

	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// VisitSlotGuard serializes writers of one patient's visit for one civil day.
//
// Two layers:
// - an in-process mutex per slot, so goroutines of this instance queue locally
// - a Redis SET NX PX lease per slot, so several API instances exclude each other
//
// The unique (patient_id, visit_date) index stays the authoritative guarantee; when
// Redis is unreachable the guard degrades to the in-process layer and logs a warning.
type VisitSlotGuard struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration

	slotMu sync.Map // map[string]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewVisitSlotGuard starts the background mutex cleanup. Call Stop() during shutdown.
// redisClient may be nil to run single-instance.
func NewVisitSlotGuard(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *VisitSlotGuard {
	g := &VisitSlotGuard{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
		stopChan:    make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupMutexMapLoop()

	return g
}

// Stop gracefully shuts down the guard.
// Safe to call multiple times.
func (g *VisitSlotGuard) Stop() {
	if g.stopped.CompareAndSwap(false, true) {
		close(g.stopChan)
		g.wg.Wait()
		g.log.Info("VisitSlotGuard stopped")
	}
}

// Lock acquires the (patientID, day) slot. The returned release func must be called
// exactly once; extra calls are ignored.
func (g *VisitSlotGuard) Lock(ctx context.Context, patientID int64, day datatypes.Date) (func(), error) {
	key := SlotKey(patientID, day)

	mt := g.getSlotMutex(key)
	mt.mu.Lock()

	token, err := g.acquireLease(ctx, key)
	if err != nil {
		mt.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.releaseLease(key, token)
			mt.lastUsed.Store(time.Now().Unix())
			mt.mu.Unlock()
		})
	}, nil
}

// SlotKey is the Redis key of one patient's visit slot for one day.
func SlotKey(patientID int64, day datatypes.Date) string {
	return fmt.Sprintf("%s%d:%s", RedisSlotKeyPrefix, patientID, clock.Format(day))
}

// acquireLease returns an empty token when Redis is not in use.
func (g *VisitSlotGuard) acquireLease(ctx context.Context, key string) (string, error) {
	if g.redisClient == nil {
		return "", nil
	}

	token := uuid.NewString()
	deadline := time.Now().Add(g.ttl)

	for {
		ok, err := g.redisClient.SetNX(ctx, key, token, g.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			g.log.Warnf("Failed to acquire Redis lease %s, continuing with local lock: %+v", key, err)
			return "", nil
		}
		if ok {
			return token, nil
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: %s", ErrSlotBusy, key)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(slotRetryInterval):
		}
	}
}

func (g *VisitSlotGuard) releaseLease(key, token string) {
	if g.redisClient == nil || token == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), slotReleaseTimeout)
	defer cancel()

	if err := releaseSlotScript.Run(ctx, g.redisClient, []string{key}, token).Err(); err != nil {
		// The lease expires on its own after ttl.
		g.log.Warnf("Failed to release Redis lease %s: %+v", key, err)
	}
}

// getSlotMutex returns mutex for a specific slot key
func (g *VisitSlotGuard) getSlotMutex(key string) *mutexWithTimestamp {
	mt, _ := g.slotMu.LoadOrStore(key, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

// cleanupMutexMapLoop runs in background to clean stale mutexes
func (g *VisitSlotGuard) cleanupMutexMapLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			g.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			g.cleanupStaleMutexes(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanupStaleMutexes removes mutexes unused since cutoff. TryLock skips held ones, and
// lastUsed is re-read under the lock so a concurrent getSlotMutex is never lost.
func (g *VisitSlotGuard) cleanupStaleMutexes(cutoff time.Time) int {
	cutoffUnix := cutoff.Unix()
	var cleaned int

	g.slotMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffUnix {
				g.slotMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		g.log.Debugf("Cleaned up %d stale slot mutexes", cleaned)
	}
	return cleaned
}
