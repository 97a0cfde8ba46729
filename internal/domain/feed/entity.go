package feed

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProviderKind string

const (
	ProviderFeed    ProviderKind = "feed"
	ProviderAPI     ProviderKind = "api"
	ProviderScraper ProviderKind = "scraper"
)

type ContentType string

const (
	ContentBreaking ContentType = "breaking"
	ContentAnalysis ContentType = "analysis"
	ContentDaily    ContentType = "daily"
	ContentWeekly   ContentType = "weekly"
)

type RefreshTier string

const (
	TierRealtime RefreshTier = "realtime"
	TierFrequent RefreshTier = "frequent"
	TierStandard RefreshTier = "standard"
	TierSlow     RefreshTier = "slow"
)

func ParseProvider(s string) (ProviderKind, bool) {
	switch ProviderKind(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderFeed:
		return ProviderFeed, true
	case ProviderAPI:
		return ProviderAPI, true
	case ProviderScraper:
		return ProviderScraper, true
	}
	return "", false
}

func ParseTier(s string) (RefreshTier, bool) {
	switch RefreshTier(strings.ToLower(strings.TrimSpace(s))) {
	case TierRealtime:
		return TierRealtime, true
	case TierFrequent:
		return TierFrequent, true
	case TierStandard:
		return TierStandard, true
	case TierSlow:
		return TierSlow, true
	}
	return "", false
}

// Source is a logical content origin. QualityScore is a slow-moving [0,1]
// trust signal mutated only by analyzer feedback.
type Source struct {
	ID           uuid.UUID
	Name         string
	BaseURL      string
	Provider     ProviderKind
	Language     string
	Region       string
	Category     string
	ContentType  ContentType
	IsActive     bool
	QualityScore float64
	CreatedAt    time.Time
}

// Instance is one pollable endpoint bound to a Source. A source may carry
// several instances (regional variants, mirrors).
type Instance struct {
	ID       uuid.UUID
	SourceID uuid.UUID
	FetchURL string

	Tier               RefreshTier
	BaseRefreshMinutes float64
	AdaptiveRefresh    bool
	// CurrentIntervalMinutes is the last value the adaptive calculator
	// produced; zero means the tier base applies.
	CurrentIntervalMinutes float64

	LastFetchedAt *time.Time
	LastSuccessAt *time.Time

	ConsecutiveFailures int
	AvgArticlesPerFetch float64
	ReliabilityScore    float64
	IsActive            bool
}

// EffectiveIntervalMinutes returns the interval the due-time rule uses.
func (i *Instance) EffectiveIntervalMinutes() float64 {
	if i == nil {
		return 0
	}
	if i.AdaptiveRefresh && i.CurrentIntervalMinutes > 0 {
		return i.CurrentIntervalMinutes
	}
	if i.BaseRefreshMinutes > 0 {
		return i.BaseRefreshMinutes
	}
	return 60
}

// Due reports whether the instance should be polled at now. An instance
// that has never been fetched is immediately due.
func (i *Instance) Due(now time.Time) bool {
	if i == nil || !i.IsActive {
		return false
	}
	if i.LastFetchedAt == nil || i.LastFetchedAt.IsZero() {
		return true
	}
	interval := time.Duration(i.EffectiveIntervalMinutes() * float64(time.Minute))
	return !now.Before(i.LastFetchedAt.Add(interval))
}

// ApplySuccess folds a successful poll into the health fields: the failure
// counter resets and reliability recovers by reward, capped at 1.
func (i *Instance) ApplySuccess(now time.Time, reward float64, newArticles int) {
	if i == nil {
		return
	}
	i.ConsecutiveFailures = 0
	i.ReliabilityScore = ClampScore(i.ReliabilityScore + reward)
	t := now
	i.LastFetchedAt = &t
	i.LastSuccessAt = &t

	// Exponential moving average, weighted toward history.
	if i.AvgArticlesPerFetch <= 0 {
		i.AvgArticlesPerFetch = float64(newArticles)
	} else {
		i.AvgArticlesPerFetch = i.AvgArticlesPerFetch*0.8 + float64(newArticles)*0.2
	}
}

// ApplyFailure folds a failed poll in: the counter grows and reliability
// drops by penalty, floored at 0.
func (i *Instance) ApplyFailure(now time.Time, penalty float64) {
	if i == nil {
		return
	}
	i.ConsecutiveFailures++
	i.ReliabilityScore = ClampScore(i.ReliabilityScore - penalty)
	t := now
	i.LastFetchedAt = &t
}

func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Article is one normalized content item ingested from an instance.
type Article struct {
	ID         uuid.UUID
	SourceID   uuid.UUID
	InstanceID uuid.UUID

	Title       string
	Link        string
	Author      string
	Content     string
	Description string
	GUID        string

	Language       string
	LangConfidence float64

	PublishedAt *time.Time
	CreatedAt   time.Time
}
