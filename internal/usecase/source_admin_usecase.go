package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

type RegisterSourceParams struct {
	Name        string
	BaseURL     string
	Provider    string
	Language    string
	Region      string
	Category    string
	ContentType string
}

type RegisterInstanceParams struct {
	SourceID           uuid.UUID
	FetchURL           string
	Tier               string
	BaseRefreshMinutes float64
	AdaptiveRefresh    bool
}

type SourceAdminUsecase interface {
	RegisterSource(ctx context.Context, params RegisterSourceParams) (*feed.Source, error)
	RegisterInstance(ctx context.Context, params RegisterInstanceParams) (*feed.Instance, error)
	ListSources(ctx context.Context, onlyActive bool, limit, offset int) ([]feed.Source, error)
	GetSource(ctx context.Context, id uuid.UUID) (*feed.Source, []feed.Instance, error)
	SetSourceActive(ctx context.Context, id uuid.UUID, active bool) error
}

// SourceAdmin is the operator surface over sources and instances:
// registration, listing and manual (re)activation. Deactivation by the
// scheduler goes through the same SetActive path.
type SourceAdmin struct {
	sources   repository.FeedSourceRepository
	instances repository.FeedInstanceRepository
	cache     HealthCache
	logger    *log.Logger
}

func NewSourceAdminUsecase(
	sources repository.FeedSourceRepository,
	instances repository.FeedInstanceRepository,
	cache HealthCache,
	logger *log.Logger,
) *SourceAdmin {
	if logger == nil {
		logger = log.Default()
	}
	return &SourceAdmin{sources: sources, instances: instances, cache: cache, logger: logger}
}

func (u *SourceAdmin) RegisterSource(ctx context.Context, params RegisterSourceParams) (*feed.Source, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	provider, ok := feed.ParseProvider(params.Provider)
	if !ok {
		return nil, ErrInvalidInput
	}

	src := &feed.Source{
		ID:          uuid.New(),
		Name:        name,
		BaseURL:     strings.TrimSpace(params.BaseURL),
		Provider:    provider,
		Language:    strings.ToLower(strings.TrimSpace(params.Language)),
		Region:      strings.TrimSpace(params.Region),
		Category:    strings.ToLower(strings.TrimSpace(params.Category)),
		ContentType: feed.ContentType(strings.ToLower(strings.TrimSpace(params.ContentType))),
		IsActive:    true,
	}
	if err := u.sources.Create(ctx, src); err != nil {
		return nil, ErrInternal
	}
	u.logger.Printf("[Admin] source registered | id=%s name=%q provider=%s", src.ID, src.Name, src.Provider)
	return src, nil
}

func (u *SourceAdmin) RegisterInstance(ctx context.Context, params RegisterInstanceParams) (*feed.Instance, error) {
	if params.SourceID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	fetchURL := strings.TrimSpace(params.FetchURL)
	if fetchURL == "" {
		return nil, ErrInvalidInput
	}
	tier, ok := feed.ParseTier(params.Tier)
	if !ok {
		return nil, ErrInvalidInput
	}

	if _, err := u.sources.GetByID(ctx, params.SourceID); err != nil {
		if errors.Is(err, repository.ErrFeedSourceNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal
	}

	inst := &feed.Instance{
		ID:                 uuid.New(),
		SourceID:           params.SourceID,
		FetchURL:           fetchURL,
		Tier:               tier,
		BaseRefreshMinutes: params.BaseRefreshMinutes,
		AdaptiveRefresh:    params.AdaptiveRefresh,
		ReliabilityScore:   1,
		IsActive:           true,
	}
	if err := u.instances.Create(ctx, inst); err != nil {
		return nil, ErrInternal
	}
	u.logger.Printf("[Admin] instance registered | id=%s source=%s tier=%s", inst.ID, inst.SourceID, inst.Tier)
	return inst, nil
}

func (u *SourceAdmin) ListSources(ctx context.Context, onlyActive bool, limit, offset int) ([]feed.Source, error) {
	if limit < 0 || limit > 100 || offset < 0 {
		return nil, ErrInvalidInput
	}
	out, err := u.sources.List(ctx, onlyActive, limit, offset)
	if err != nil {
		return nil, ErrInternal
	}
	return out, nil
}

func (u *SourceAdmin) GetSource(ctx context.Context, id uuid.UUID) (*feed.Source, []feed.Instance, error) {
	if id == uuid.Nil {
		return nil, nil, ErrInvalidInput
	}
	src, err := u.sources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFeedSourceNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, ErrInternal
	}
	insts, err := u.instances.ListBySource(ctx, id)
	if err != nil {
		return nil, nil, ErrInternal
	}
	return src, insts, nil
}

// SetSourceActive flips a source on or off. Reactivation also clears any
// residual failure counters on its instances so they re-enter the due set
// cleanly.
func (u *SourceAdmin) SetSourceActive(ctx context.Context, id uuid.UUID, active bool) error {
	if id == uuid.Nil {
		return ErrInvalidInput
	}
	if err := u.sources.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrFeedSourceNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	if active {
		insts, err := u.instances.ListBySource(ctx, id)
		if err == nil {
			for i := range insts {
				inst := insts[i]
				if inst.ConsecutiveFailures == 0 {
					continue
				}
				inst.ConsecutiveFailures = 0
				if err := u.instances.UpdateHealth(ctx, &inst); err != nil {
					u.logger.Printf("[Admin] counter reset failed | instance=%s err=%v", inst.ID, err)
				}
			}
		}
	}

	if u.cache != nil {
		_ = u.cache.Delete(ctx, DashboardCacheKey(id))
	}

	u.logger.Printf("[Admin] source active flag updated | id=%s active=%t", id, active)
	return nil
}
