package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"feedpulse/internal/database"
	"feedpulse/internal/domain/feed"

	"github.com/google/uuid"
)

type ArticleRepository interface {
	// UpsertBatch inserts articles keyed on (instance_id, guid) and
	// returns how many were actually new.
	UpsertBatch(ctx context.Context, articles []feed.Article) (int, error)

	// ListSince returns articles for the source created after the
	// cutoff, newest first.
	ListSince(ctx context.Context, sourceID uuid.UUID, since time.Time) ([]feed.Article, error)
}

type PostgresArticleRepository struct {
	db database.DB
}

func NewPostgresArticleRepository(db database.DB) *PostgresArticleRepository {
	return &PostgresArticleRepository{db: db}
}

func (r *PostgresArticleRepository) UpsertBatch(ctx context.Context, articles []feed.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	inserted := 0
	for i := range articles {
		a := &articles[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		guid := strings.TrimSpace(a.GUID)
		if guid == "" {
			guid = strings.TrimSpace(a.Link)
		}
		if guid == "" {
			continue
		}
		n, err := tx.Exec(ctx,
			`INSERT INTO articles
			   (id, source_id, instance_id, title, link, author, content, description,
			    guid, language, lang_confidence, published_at, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			 ON CONFLICT (instance_id, guid) DO NOTHING`,
			a.ID, a.SourceID, a.InstanceID, a.Title, a.Link, a.Author,
			a.Content, a.Description, guid, a.Language, a.LangConfidence,
			a.PublishedAt, a.CreatedAt,
		)
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PostgresArticleRepository) ListSince(ctx context.Context, sourceID uuid.UUID, since time.Time) ([]feed.Article, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, source_id, instance_id, COALESCE(title, ''), COALESCE(link, ''),
		        COALESCE(author, ''), COALESCE(content, ''), COALESCE(description, ''),
		        COALESCE(guid, ''), COALESCE(language, ''), lang_confidence,
		        published_at, created_at
		 FROM articles
		 WHERE source_id = $1 AND created_at >= $2
		 ORDER BY created_at DESC`,
		sourceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]feed.Article, 0)
	for rows.Next() {
		var a feed.Article
		var published sql.NullTime
		if err := rows.Scan(&a.ID, &a.SourceID, &a.InstanceID, &a.Title, &a.Link,
			&a.Author, &a.Content, &a.Description, &a.GUID, &a.Language,
			&a.LangConfidence, &published, &a.CreatedAt); err != nil {
			return nil, err
		}
		if published.Valid {
			t := published.Time
			a.PublishedAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
