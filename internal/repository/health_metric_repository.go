package repository

import (
	"context"
	"errors"
	"time"

	"feedpulse/internal/database"
	"feedpulse/internal/domain/health"

	"github.com/google/uuid"
)

type HealthMetricRepository interface {
	// Append writes one immutable per-fetch record. Records are never
	// updated, so concurrent writers are safe.
	Append(ctx context.Context, rec *health.MetricRecord) error

	// ListSince returns records for every instance of the source, newest
	// first, with checked_at after the cutoff.
	ListSince(ctx context.Context, sourceID uuid.UUID, since time.Time) ([]health.MetricRecord, error)

	// ListSinceByInstance is the per-instance variant used by the
	// adaptive refresh summary.
	ListSinceByInstance(ctx context.Context, instanceID uuid.UUID, since time.Time) ([]health.MetricRecord, error)
}

type PostgresHealthMetricRepository struct {
	db database.DB
}

func NewPostgresHealthMetricRepository(db database.DB) *PostgresHealthMetricRepository {
	return &PostgresHealthMetricRepository{db: db}
}

func (r *PostgresHealthMetricRepository) Append(ctx context.Context, rec *health.MetricRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO health_metrics
		   (id, instance_id, checked_at, response_time_ms, is_available, http_status,
		    articles_found, articles_new, articles_duplicate, error_kind, error_message,
		    avg_content_length, avg_lang_confidence, recommended_action)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.InstanceID, rec.CheckedAt, rec.ResponseTime.Milliseconds(),
		rec.IsAvailable, rec.HTTPStatus, rec.ArticlesFound, rec.ArticlesNew,
		rec.ArticlesDuplicate, string(rec.ErrorKind), rec.ErrorMessage,
		rec.AvgContentLength, rec.AvgLangConfidence, string(rec.Action),
	)
	return err
}

const metricColumns = `m.id, m.instance_id, m.checked_at, m.response_time_ms,
	m.is_available, m.http_status, m.articles_found, m.articles_new,
	m.articles_duplicate, COALESCE(m.error_kind, ''), COALESCE(m.error_message, ''),
	m.avg_content_length, m.avg_lang_confidence, COALESCE(m.recommended_action, '')`

func (r *PostgresHealthMetricRepository) ListSince(ctx context.Context, sourceID uuid.UUID, since time.Time) ([]health.MetricRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+metricColumns+`
		 FROM health_metrics m
		 JOIN feed_instances i ON i.id = m.instance_id
		 WHERE i.source_id = $1 AND m.checked_at >= $2
		 ORDER BY m.checked_at DESC`,
		sourceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMetrics(rows)
}

func (r *PostgresHealthMetricRepository) ListSinceByInstance(ctx context.Context, instanceID uuid.UUID, since time.Time) ([]health.MetricRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+metricColumns+`
		 FROM health_metrics m
		 WHERE m.instance_id = $1 AND m.checked_at >= $2
		 ORDER BY m.checked_at DESC`,
		instanceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMetrics(rows)
}

func collectMetrics(rows database.Rows) ([]health.MetricRecord, error) {
	out := make([]health.MetricRecord, 0)
	for rows.Next() {
		var rec health.MetricRecord
		var responseMs int64
		var kind, action string
		if err := rows.Scan(&rec.ID, &rec.InstanceID, &rec.CheckedAt, &responseMs,
			&rec.IsAvailable, &rec.HTTPStatus, &rec.ArticlesFound, &rec.ArticlesNew,
			&rec.ArticlesDuplicate, &kind, &rec.ErrorMessage,
			&rec.AvgContentLength, &rec.AvgLangConfidence, &action); err != nil {
			return nil, err
		}
		rec.ResponseTime = time.Duration(responseMs) * time.Millisecond
		rec.ErrorKind = health.ErrorKind(kind)
		rec.Action = health.RecommendedAction(action)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
