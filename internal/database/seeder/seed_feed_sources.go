package seeder

import (
	"context"
	"fmt"

	"feedpulse/internal/database"
)

type FeedSourcesSeeder struct{}

func (FeedSourcesSeeder) Name() string { return "feed_sources" }

// Run installs a starter set of well-known feeds so a fresh deployment
// has something to poll. Existing rows are left untouched.
func (FeedSourcesSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "feed_sources", "id", "name", "base_url", "provider", "language", "category", "created_at"); err != nil {
		return err
	}
	if err := EnsureTableColumns(ctx, db, "feed_instances", "id", "source_id", "fetch_url", "tier"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	items := []struct {
		Name     string
		BaseURL  string
		FetchURL string
		Language string
		Region   string
		Category string
		Tier     string
	}{
		{Name: "BBC News", BaseURL: "https://www.bbc.co.uk/news", FetchURL: "https://feeds.bbci.co.uk/news/rss.xml", Language: "en", Region: "gb", Category: "world", Tier: "frequent"},
		{Name: "Reuters World", BaseURL: "https://www.reuters.com", FetchURL: "https://www.reutersagency.com/feed/?best-topics=world", Language: "en", Region: "us", Category: "world", Tier: "realtime"},
		{Name: "NASA Breaking News", BaseURL: "https://www.nasa.gov", FetchURL: "https://www.nasa.gov/rss/dyn/breaking_news.rss", Language: "en", Region: "us", Category: "science", Tier: "standard"},
		{Name: "Ars Technica", BaseURL: "https://arstechnica.com", FetchURL: "https://feeds.arstechnica.com/arstechnica/index", Language: "en", Region: "us", Category: "technology", Tier: "frequent"},
		{Name: "Le Monde", BaseURL: "https://www.lemonde.fr", FetchURL: "https://www.lemonde.fr/rss/une.xml", Language: "fr", Region: "fr", Category: "world", Tier: "frequent"},
	}

	for _, it := range items {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO feed_sources (id, name, base_url, provider, language, region, category, content_type, is_active, quality_score)
			 VALUES (gen_random_uuid(), $1, $2, 'feed', $3, $4, $5, 'daily', TRUE, 0.5)
			 ON CONFLICT (name) DO NOTHING`,
			it.Name, it.BaseURL, it.Language, it.Region, it.Category,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(
			ctx,
			`INSERT INTO feed_instances (id, source_id, fetch_url, tier, base_refresh_minutes, adaptive_refresh, reliability_score, is_active)
			 SELECT gen_random_uuid(), s.id, $2, $3,
			        CASE $3 WHEN 'realtime' THEN 5 WHEN 'frequent' THEN 15 WHEN 'slow' THEN 360 ELSE 60 END,
			        TRUE, 1, TRUE
			 FROM feed_sources s WHERE s.name = $1
			 ON CONFLICT (source_id, fetch_url) DO NOTHING`,
			it.Name, it.FetchURL, it.Tier,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
