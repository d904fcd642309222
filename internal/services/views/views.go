// Package views counts project detail views off the request path.
package views

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/metrics"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store"
)

const (
	incrementTimeout = 2 * time.Second
	maxInFlight      = 64
)

// Deduper decides whether a viewer's visit is the first within its window.
type Deduper interface {
	AcquireOnce(ctx context.Context, projectID uuid.UUID, viewer string) bool
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce fails open: when redis is unreachable the view is counted.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, projectID uuid.UUID, viewer string) bool {
	key := fmt.Sprintf("views:%s:%s", projectID, viewer)
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Recorder increments view counts in the background. Record never blocks and
// never fails the caller.
type Recorder struct {
	projects func() store.ProjectRepo
	dedupe   Deduper
	log      *zap.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

// NewRecorder wires a recorder; dedupe may be nil to count every view.
func NewRecorder(s store.Store, dedupe Deduper, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		projects: s.Projects,
		dedupe:   dedupe,
		log:      log,
		slots:    make(chan struct{}, maxInFlight),
	}
}

func (r *Recorder) Record(projectID uuid.UUID, viewer string) {
	select {
	case r.slots <- struct{}{}:
	default:
		metrics.ViewIncrementFailures.Inc()
		r.log.Debug("views: dropped, too many in flight", zap.Stringer("project", projectID))
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.slots }()

		ctx, cancel := context.WithTimeout(context.Background(), incrementTimeout)
		defer cancel()

		if r.dedupe != nil && viewer != "" && !r.dedupe.AcquireOnce(ctx, projectID, viewer) {
			return
		}
		if err := r.projects().IncrementViewCount(ctx, projectID); err != nil {
			metrics.ViewIncrementFailures.Inc()
			r.log.Warn("views: increment failed", zap.Stringer("project", projectID), zap.Error(err))
		}
	}()
}

// Wait blocks until every pending increment has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
