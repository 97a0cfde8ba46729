package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"feedpulse/internal/database"
	"feedpulse/internal/domain/feed"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrFeedInstanceNotFound = errors.New("feed instance not found")
)

// DueFilter narrows the due-set selection. Zero value selects every active
// instance.
type DueFilter struct {
	Category string
	Language string
	Region   string
	IDs      []uuid.UUID
}

type FeedInstanceRepository interface {
	Create(ctx context.Context, inst *feed.Instance) error
	GetByID(ctx context.Context, id uuid.UUID) (*feed.Instance, error)
	ListBySource(ctx context.Context, sourceID uuid.UUID) ([]feed.Instance, error)

	// ListDue returns active instances whose next-scheduled time has
	// passed, ordered by reliability DESC then staleness (oldest
	// last_fetched first, never-fetched first of all).
	ListDue(ctx context.Context, now time.Time, filter DueFilter, limit int) ([]feed.Instance, error)

	UpdateHealth(ctx context.Context, inst *feed.Instance) error
	UpdateInterval(ctx context.Context, id uuid.UUID, minutes float64) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type PostgresFeedInstanceRepository struct {
	db database.DB
}

func NewPostgresFeedInstanceRepository(db database.DB) *PostgresFeedInstanceRepository {
	return &PostgresFeedInstanceRepository{db: db}
}

// instanceColumns renders the shared SELECT list, qualifying each column
// with the given table alias. The COALESCE expression is kept whole here;
// splitting a rendered list on commas would break it apart.
func instanceColumns(alias string) string {
	return strings.Join([]string{
		alias + "id",
		alias + "source_id",
		alias + "fetch_url",
		alias + "tier",
		alias + "base_refresh_minutes",
		alias + "adaptive_refresh",
		"COALESCE(" + alias + "current_interval_minutes, 0)",
		alias + "last_fetched_at",
		alias + "last_success_at",
		alias + "consecutive_failures",
		alias + "avg_articles_per_fetch",
		alias + "reliability_score",
		alias + "is_active",
	}, ", ")
}

func (r *PostgresFeedInstanceRepository) Create(ctx context.Context, inst *feed.Instance) error {
	if inst == nil {
		return errors.New("nil instance")
	}
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}
	if inst.Tier == "" {
		inst.Tier = feed.TierStandard
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO feed_instances
		   (id, source_id, fetch_url, tier, base_refresh_minutes, adaptive_refresh,
		    current_interval_minutes, consecutive_failures, avg_articles_per_fetch,
		    reliability_score, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		inst.ID, inst.SourceID, strings.TrimSpace(inst.FetchURL), string(inst.Tier),
		inst.BaseRefreshMinutes, inst.AdaptiveRefresh, inst.CurrentIntervalMinutes,
		inst.ConsecutiveFailures, inst.AvgArticlesPerFetch,
		feed.ClampScore(inst.ReliabilityScore), inst.IsActive,
	)
	return err
}

func (r *PostgresFeedInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*feed.Instance, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+instanceColumns("")+` FROM feed_instances WHERE id = $1`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeedInstanceNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (r *PostgresFeedInstanceRepository) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]feed.Instance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+instanceColumns("")+` FROM feed_instances WHERE source_id = $1 ORDER BY fetch_url`,
		sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *PostgresFeedInstanceRepository) ListDue(ctx context.Context, now time.Time, filter DueFilter, limit int) ([]feed.Instance, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT ` + instanceColumns("i.") + `
	      FROM feed_instances i
	      JOIN feed_sources s ON s.id = i.source_id
	      WHERE i.is_active = TRUE AND s.is_active = TRUE
	        AND (i.last_fetched_at IS NULL
	             OR i.last_fetched_at + make_interval(mins =>
	                 CASE WHEN i.adaptive_refresh AND COALESCE(i.current_interval_minutes, 0) > 0
	                      THEN i.current_interval_minutes
	                      ELSE i.base_refresh_minutes END) <= $1)`
	args := []any{now}

	if strings.TrimSpace(filter.Category) != "" {
		args = append(args, strings.TrimSpace(filter.Category))
		q += ` AND s.category = $` + itoa(len(args))
	}
	if strings.TrimSpace(filter.Language) != "" {
		args = append(args, strings.TrimSpace(filter.Language))
		q += ` AND s.language = $` + itoa(len(args))
	}
	if strings.TrimSpace(filter.Region) != "" {
		args = append(args, strings.TrimSpace(filter.Region))
		q += ` AND s.region = $` + itoa(len(args))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		q += ` AND i.id = ANY($` + itoa(len(args)) + `)`
	}

	args = append(args, limit)
	q += ` ORDER BY i.reliability_score DESC, i.last_fetched_at ASC NULLS FIRST
	       LIMIT $` + itoa(len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (r *PostgresFeedInstanceRepository) UpdateHealth(ctx context.Context, inst *feed.Instance) error {
	if inst == nil {
		return errors.New("nil instance")
	}
	n, err := r.db.Exec(ctx,
		`UPDATE feed_instances
		 SET last_fetched_at = $2, last_success_at = $3, consecutive_failures = $4,
		     avg_articles_per_fetch = $5, reliability_score = $6
		 WHERE id = $1`,
		inst.ID, inst.LastFetchedAt, inst.LastSuccessAt, inst.ConsecutiveFailures,
		inst.AvgArticlesPerFetch, feed.ClampScore(inst.ReliabilityScore),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedInstanceNotFound
	}
	return nil
}

func (r *PostgresFeedInstanceRepository) UpdateInterval(ctx context.Context, id uuid.UUID, minutes float64) error {
	n, err := r.db.Exec(ctx,
		`UPDATE feed_instances SET current_interval_minutes = $2 WHERE id = $1`,
		id, minutes)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedInstanceNotFound
	}
	return nil
}

func (r *PostgresFeedInstanceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	n, err := r.db.Exec(ctx, `UPDATE feed_instances SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedInstanceNotFound
	}
	return nil
}

func scanInstance(row database.Row) (*feed.Instance, error) {
	var inst feed.Instance
	var tier string
	var lastFetched, lastSuccess sql.NullTime
	err := row.Scan(&inst.ID, &inst.SourceID, &inst.FetchURL, &tier,
		&inst.BaseRefreshMinutes, &inst.AdaptiveRefresh, &inst.CurrentIntervalMinutes,
		&lastFetched, &lastSuccess, &inst.ConsecutiveFailures,
		&inst.AvgArticlesPerFetch, &inst.ReliabilityScore, &inst.IsActive)
	if err != nil {
		return nil, err
	}
	inst.Tier = feed.RefreshTier(tier)
	if lastFetched.Valid {
		t := lastFetched.Time
		inst.LastFetchedAt = &t
	}
	if lastSuccess.Valid {
		t := lastSuccess.Time
		inst.LastSuccessAt = &t
	}
	return &inst, nil
}

func collectInstances(rows database.Rows) ([]feed.Instance, error) {
	out := make([]feed.Instance, 0)
	for rows.Next() {
		inst, err := scanInstance(rowAdapter{rows})
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowAdapter lets scanInstance work over both Row and Rows.
type rowAdapter struct {
	rows database.Rows
}

func (a rowAdapter) Scan(dest ...any) error {
	return a.rows.Scan(dest...)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
