package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"feedpulse/internal/analyzer"
	"feedpulse/internal/domain/health"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

const dashboardLockTTL = 30 * time.Second

type MonitorUsecase interface {
	GetDashboard(ctx context.Context, sourceID uuid.UUID, refresh bool) (*health.Dashboard, error)
}

type alertBroadcaster interface {
	HealthAlerts(sourceID uuid.UUID, status health.Status, score float64, alerts []health.Alert)
}

// Monitor serves health dashboards. Results are cached; a short redis lock
// keeps concurrent misses from re-running the analyzer for the same
// source.
type Monitor struct {
	analyzer    *analyzer.Analyzer
	sources     repository.FeedSourceRepository
	cache       HealthCache
	broadcaster alertBroadcaster
	ttl         time.Duration
	logger      *log.Logger
}

func NewMonitorUsecase(
	an *analyzer.Analyzer,
	sources repository.FeedSourceRepository,
	cache HealthCache,
	broadcaster alertBroadcaster,
	ttl time.Duration,
	logger *log.Logger,
) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Monitor{
		analyzer:    an,
		sources:     sources,
		cache:       cache,
		broadcaster: broadcaster,
		ttl:         ttl,
		logger:      logger,
	}
}

func (u *Monitor) GetDashboard(ctx context.Context, sourceID uuid.UUID, refresh bool) (*health.Dashboard, error) {
	if u == nil || u.analyzer == nil {
		return nil, ErrInternal
	}
	if sourceID == uuid.Nil {
		return nil, ErrInvalidInput
	}

	cacheKey := DashboardCacheKey(sourceID)
	lockKey := DashboardLockKey(cacheKey)

	if !refresh && u.cache != nil {
		var cached health.Dashboard
		hit, err := u.cache.GetJSON(ctx, cacheKey, &cached)
		if err == nil && hit {
			u.logger.Printf("[Monitor] Cache HIT: %s", cacheKey)
			return &cached, nil
		}
		u.logger.Printf("[Monitor] Cache MISS: %s", cacheKey)
	}

	lockAcquired := false
	if !refresh && u.cache != nil {
		ok, err := u.cache.SetIfNotExists(ctx, lockKey, "1", dashboardLockTTL)
		if err == nil && ok {
			lockAcquired = true
		} else if err == nil && !ok {
			// Another request is analyzing this source right now; give
			// it a moment and reuse its result on success.
			jitterMs := time.Duration(time.Now().UnixNano()%201) * time.Millisecond
			time.Sleep(300*time.Millisecond + jitterMs)
			var cached health.Dashboard
			hit, err2 := u.cache.GetJSON(ctx, cacheKey, &cached)
			if err2 == nil && hit {
				u.logger.Printf("[Monitor] Cache HIT: %s", cacheKey)
				return &cached, nil
			}
			u.logger.Printf("[Monitor] Lock wait fallback: %s", lockKey)
		}
	}

	d, err := u.analyzer.Analyze(ctx, sourceID)
	if err != nil {
		if errors.Is(err, repository.ErrFeedSourceNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}

	// Analyzer output feeds back into the source's slow-moving trust
	// signal. Best effort; the dashboard is served either way.
	if u.sources != nil {
		if err := u.sources.UpdateQualityScore(ctx, sourceID, d.OverallScore/100); err != nil {
			u.logger.Printf("[Monitor] quality score update failed | source=%s err=%v", sourceID, err)
		}
	}

	if u.broadcaster != nil && len(d.Alerts) > 0 {
		u.broadcaster.HealthAlerts(sourceID, d.HealthStatus, d.OverallScore, d.Alerts)
	}

	if u.cache != nil {
		_ = u.cache.SetJSON(ctx, cacheKey, d, u.ttl)
		if lockAcquired {
			_ = u.cache.Delete(ctx, lockKey)
		}
	}

	return d, nil
}
