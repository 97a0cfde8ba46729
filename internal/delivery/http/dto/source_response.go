package dto

import (
	"time"

	"feedpulse/internal/domain/feed"

	"github.com/google/uuid"
)

type SourceResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BaseURL      string    `json:"base_url"`
	Provider     string    `json:"provider"`
	Language     string    `json:"language"`
	Region       string    `json:"region"`
	Category     string    `json:"category"`
	ContentType  string    `json:"content_type"`
	IsActive     bool      `json:"is_active"`
	QualityScore float64   `json:"quality_score"`
	CreatedAt    time.Time `json:"created_at"`
}

type InstanceResponse struct {
	ID                     uuid.UUID  `json:"id"`
	SourceID               uuid.UUID  `json:"source_id"`
	FetchURL               string     `json:"fetch_url"`
	Tier                   string     `json:"tier"`
	BaseRefreshMinutes     float64    `json:"base_refresh_minutes"`
	AdaptiveRefresh        bool       `json:"adaptive_refresh"`
	CurrentIntervalMinutes float64    `json:"current_interval_minutes"`
	LastFetchedAt          *time.Time `json:"last_fetched_at"`
	LastSuccessAt          *time.Time `json:"last_success_at"`
	ConsecutiveFailures    int        `json:"consecutive_failures"`
	AvgArticlesPerFetch    float64    `json:"avg_articles_per_fetch"`
	ReliabilityScore       float64    `json:"reliability_score"`
	IsActive               bool       `json:"is_active"`
}

type SourceDetailResponse struct {
	Source    SourceResponse     `json:"source"`
	Instances []InstanceResponse `json:"instances"`
}

func NewSourceResponse(s feed.Source) SourceResponse {
	return SourceResponse{
		ID:           s.ID,
		Name:         s.Name,
		BaseURL:      s.BaseURL,
		Provider:     string(s.Provider),
		Language:     s.Language,
		Region:       s.Region,
		Category:     s.Category,
		ContentType:  string(s.ContentType),
		IsActive:     s.IsActive,
		QualityScore: s.QualityScore,
		CreatedAt:    s.CreatedAt,
	}
}

func NewInstanceResponse(i feed.Instance) InstanceResponse {
	return InstanceResponse{
		ID:                     i.ID,
		SourceID:               i.SourceID,
		FetchURL:               i.FetchURL,
		Tier:                   string(i.Tier),
		BaseRefreshMinutes:     i.BaseRefreshMinutes,
		AdaptiveRefresh:        i.AdaptiveRefresh,
		CurrentIntervalMinutes: i.CurrentIntervalMinutes,
		LastFetchedAt:          i.LastFetchedAt,
		LastSuccessAt:          i.LastSuccessAt,
		ConsecutiveFailures:    i.ConsecutiveFailures,
		AvgArticlesPerFetch:    i.AvgArticlesPerFetch,
		ReliabilityScore:       i.ReliabilityScore,
		IsActive:               i.IsActive,
	}
}

func NewSourceDetailResponse(s feed.Source, instances []feed.Instance) SourceDetailResponse {
	out := SourceDetailResponse{
		Source:    NewSourceResponse(s),
		Instances: make([]InstanceResponse, 0, len(instances)),
	}
	for _, it := range instances {
		out.Instances = append(out.Instances, NewInstanceResponse(it))
	}
	return out
}
