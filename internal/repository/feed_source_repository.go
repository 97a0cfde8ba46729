package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"feedpulse/internal/database"
	"feedpulse/internal/domain/feed"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrFeedSourceNotFound = errors.New("feed source not found")
)

type FeedSourceRepository interface {
	Create(ctx context.Context, src *feed.Source) error
	GetByID(ctx context.Context, id uuid.UUID) (*feed.Source, error)
	List(ctx context.Context, onlyActive bool, limit, offset int) ([]feed.Source, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateQualityScore(ctx context.Context, id uuid.UUID, score float64) error
}

type PostgresFeedSourceRepository struct {
	db database.DB
}

func NewPostgresFeedSourceRepository(db database.DB) *PostgresFeedSourceRepository {
	return &PostgresFeedSourceRepository{db: db}
}

func (r *PostgresFeedSourceRepository) Create(ctx context.Context, src *feed.Source) error {
	if src == nil {
		return errors.New("nil source")
	}
	if src.ID == uuid.Nil {
		src.ID = uuid.New()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO feed_sources
		   (id, name, base_url, provider, language, region, category, content_type, is_active, quality_score, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		src.ID, strings.TrimSpace(src.Name), strings.TrimSpace(src.BaseURL),
		string(src.Provider), src.Language, src.Region, src.Category,
		string(src.ContentType), src.IsActive, feed.ClampScore(src.QualityScore), src.CreatedAt,
	)
	return err
}

func (r *PostgresFeedSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*feed.Source, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(base_url, ''), provider, COALESCE(language, ''),
		        COALESCE(region, ''), COALESCE(category, ''), COALESCE(content_type, ''),
		        is_active, quality_score, created_at
		 FROM feed_sources WHERE id = $1`,
		id,
	)
	var s feed.Source
	var provider, ctype string
	err := row.Scan(&s.ID, &s.Name, &s.BaseURL, &provider, &s.Language,
		&s.Region, &s.Category, &ctype, &s.IsActive, &s.QualityScore, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeedSourceNotFound
		}
		return nil, err
	}
	s.Provider = feed.ProviderKind(provider)
	s.ContentType = feed.ContentType(ctype)
	return &s, nil
}

func (r *PostgresFeedSourceRepository) List(ctx context.Context, onlyActive bool, limit, offset int) ([]feed.Source, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT id, name, COALESCE(base_url, ''), provider, COALESCE(language, ''),
	             COALESCE(region, ''), COALESCE(category, ''), COALESCE(content_type, ''),
	             is_active, quality_score, created_at
	      FROM feed_sources`
	if onlyActive {
		q += ` WHERE is_active = TRUE`
	}
	q += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]feed.Source, 0)
	for rows.Next() {
		var s feed.Source
		var provider, ctype string
		if err := rows.Scan(&s.ID, &s.Name, &s.BaseURL, &provider, &s.Language,
			&s.Region, &s.Category, &ctype, &s.IsActive, &s.QualityScore, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Provider = feed.ProviderKind(provider)
		s.ContentType = feed.ContentType(ctype)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresFeedSourceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	n, err := r.db.Exec(ctx, `UPDATE feed_sources SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedSourceNotFound
	}
	return nil
}

func (r *PostgresFeedSourceRepository) UpdateQualityScore(ctx context.Context, id uuid.UUID, score float64) error {
	n, err := r.db.Exec(ctx, `UPDATE feed_sources SET quality_score = $2 WHERE id = $1`, id, feed.ClampScore(score))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFeedSourceNotFound
	}
	return nil
}
