package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"feedpulse/internal/database"

	"github.com/google/uuid"
)

type capturingDB struct {
	queries []string
	args    [][]any
}

func (d *capturingDB) Ping(context.Context) error { return nil }
func (d *capturingDB) Close() error               { return nil }

func (d *capturingDB) Exec(_ context.Context, query string, args ...any) (int64, error) {
	d.queries = append(d.queries, query)
	d.args = append(d.args, args)
	return 1, nil
}

func (d *capturingDB) Query(_ context.Context, query string, args ...any) (database.Rows, error) {
	d.queries = append(d.queries, query)
	d.args = append(d.args, args)
	return emptyRows{}, nil
}

func (d *capturingDB) QueryRow(_ context.Context, query string, args ...any) database.Row {
	d.queries = append(d.queries, query)
	d.args = append(d.args, args)
	return emptyRows{}
}

func (d *capturingDB) Begin(context.Context) (database.Tx, error) { return nil, nil }

type emptyRows struct{}

func (emptyRows) Close()            {}
func (emptyRows) Next() bool        { return false }
func (emptyRows) Scan(...any) error { return nil }
func (emptyRows) Err() error        { return nil }

func TestInstanceColumns_AliasKeepsExpressionsIntact(t *testing.T) {
	plain := instanceColumns("")
	if strings.Contains(plain, "i.") {
		t.Fatalf("unaliased list must not carry a prefix: %s", plain)
	}
	if !strings.Contains(plain, "COALESCE(current_interval_minutes, 0)") {
		t.Fatalf("expected the interval coalesce, got %s", plain)
	}

	aliased := instanceColumns("i.")
	if !strings.Contains(aliased, "COALESCE(i.current_interval_minutes, 0)") {
		t.Fatalf("alias must land inside the function call, got %s", aliased)
	}
	if strings.Contains(aliased, "i.COALESCE") || strings.Contains(aliased, "i.0") {
		t.Fatalf("alias applied to an expression fragment: %s", aliased)
	}
	if !strings.Contains(aliased, "i.id, i.source_id") || !strings.Contains(aliased, "i.is_active") {
		t.Fatalf("plain columns must all be qualified: %s", aliased)
	}
}

func TestListDue_BuildsValidQuery(t *testing.T) {
	db := &capturingDB{}
	repo := NewPostgresFeedInstanceRepository(db)

	filter := DueFilter{Category: "news", Language: "en", IDs: []uuid.UUID{uuid.New()}}
	if _, err := repo.ListDue(context.Background(), time.Now().UTC(), filter, 25); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(db.queries) != 1 {
		t.Fatalf("expected one query, got %d", len(db.queries))
	}

	q := db.queries[0]
	if strings.Contains(q, "i.COALESCE") {
		t.Fatalf("malformed select list: %s", q)
	}
	if !strings.Contains(q, "COALESCE(i.current_interval_minutes, 0)") {
		t.Fatalf("expected the qualified coalesce in the select list: %s", q)
	}
	for _, want := range []string{
		"s.category = $2",
		"s.language = $3",
		"i.id = ANY($4)",
		"LIMIT $5",
		"ORDER BY i.reliability_score DESC, i.last_fetched_at ASC NULLS FIRST",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("expected %q in query: %s", want, q)
		}
	}

	args := db.args[0]
	if len(args) != 5 {
		t.Fatalf("expected 5 args (now, category, language, ids, limit), got %d", len(args))
	}
	if args[4] != 25 {
		t.Fatalf("expected limit 25, got %v", args[4])
	}
}
