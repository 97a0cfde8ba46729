package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type HealthCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

func DashboardCacheKey(sourceID uuid.UUID) string {
	return "health:dashboard:" + sourceID.String()
}

func DashboardLockKey(cacheKey string) string {
	return cacheKey + ":lock"
}
