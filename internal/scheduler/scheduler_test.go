package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
	"feedpulse/internal/infrastructure/fetcher"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

type fakeSources struct {
	mu          sync.Mutex
	sources     map[uuid.UUID]*feed.Source
	deactivated []uuid.UUID
}

func newFakeSources(sources ...*feed.Source) *fakeSources {
	m := make(map[uuid.UUID]*feed.Source, len(sources))
	for _, s := range sources {
		m[s.ID] = s
	}
	return &fakeSources{sources: m}
}

func (f *fakeSources) Create(context.Context, *feed.Source) error { return nil }

func (f *fakeSources) GetByID(_ context.Context, id uuid.UUID) (*feed.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sources[id]
	if !ok {
		return nil, repository.ErrFeedSourceNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSources) List(context.Context, bool, int, int) ([]feed.Source, error) { return nil, nil }

func (f *fakeSources) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sources[id]
	if !ok {
		return repository.ErrFeedSourceNotFound
	}
	s.IsActive = active
	if !active {
		f.deactivated = append(f.deactivated, id)
	}
	return nil
}

func (f *fakeSources) UpdateQualityScore(context.Context, uuid.UUID, float64) error { return nil }

func (f *fakeSources) deactivatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deactivated)
}

type fakeInstances struct {
	mu       sync.Mutex
	due      []feed.Instance
	dueCalls int
	updated  map[uuid.UUID]feed.Instance
}

func newFakeInstances(due ...feed.Instance) *fakeInstances {
	return &fakeInstances{due: due, updated: make(map[uuid.UUID]feed.Instance)}
}

func (f *fakeInstances) Create(context.Context, *feed.Instance) error { return nil }
func (f *fakeInstances) GetByID(context.Context, uuid.UUID) (*feed.Instance, error) {
	return nil, repository.ErrFeedInstanceNotFound
}
func (f *fakeInstances) ListBySource(context.Context, uuid.UUID) ([]feed.Instance, error) {
	return nil, nil
}

func (f *fakeInstances) ListDue(context.Context, time.Time, repository.DueFilter, int) ([]feed.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dueCalls++
	out := make([]feed.Instance, len(f.due))
	copy(out, f.due)
	return out, nil
}

func (f *fakeInstances) UpdateHealth(_ context.Context, inst *feed.Instance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[inst.ID] = *inst
	return nil
}

func (f *fakeInstances) UpdateInterval(context.Context, uuid.UUID, float64) error { return nil }
func (f *fakeInstances) SetActive(context.Context, uuid.UUID, bool) error         { return nil }

func (f *fakeInstances) lastUpdate(id uuid.UUID) (feed.Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.updated[id]
	return inst, ok
}

func (f *fakeInstances) dueQueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dueCalls
}

type fakeMetrics struct {
	mu      sync.Mutex
	records []health.MetricRecord
}

func (f *fakeMetrics) Append(_ context.Context, rec *health.MetricRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeMetrics) ListSince(context.Context, uuid.UUID, time.Time) ([]health.MetricRecord, error) {
	return nil, nil
}

func (f *fakeMetrics) ListSinceByInstance(context.Context, uuid.UUID, time.Time) ([]health.MetricRecord, error) {
	return nil, nil
}

func (f *fakeMetrics) appended() []health.MetricRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]health.MetricRecord, len(f.records))
	copy(out, f.records)
	return out
}

type fakeArticles struct{}

func (fakeArticles) UpsertBatch(_ context.Context, articles []feed.Article) (int, error) {
	return len(articles), nil
}

func (fakeArticles) ListSince(context.Context, uuid.UUID, time.Time) ([]feed.Article, error) {
	return nil, nil
}

type fakeFetcher struct {
	fetch func(ctx context.Context, address string) (*fetcher.Result, error)
}

func (f fakeFetcher) Fetch(ctx context.Context, address string) (*fetcher.Result, error) {
	return f.fetch(ctx, address)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []int
}

func (f *fakeNotifier) SourceDeactivated(_ uuid.UUID, _ uuid.UUID, failures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, failures)
}

func (f *fakeNotifier) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.events))
	copy(out, f.events)
	return out
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MaxConcurrent:      3,
		CheckInterval:      time.Hour,
		StopTimeout:        2 * time.Second,
		FetchTimeout:       2 * time.Second,
		FailureThreshold:   5,
		ReliabilityPenalty: 0.1,
		ReliabilityReward:  0.05,
	}
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testInstance(sourceID uuid.UUID) feed.Instance {
	return feed.Instance{
		ID:                 uuid.New(),
		SourceID:           sourceID,
		FetchURL:           "https://feeds.example.com/rss.xml",
		Tier:               feed.TierStandard,
		BaseRefreshMinutes: 60,
		AdaptiveRefresh:    true,
		ReliabilityScore:   1,
		IsActive:           true,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func okResult() (*fetcher.Result, error) {
	return &fetcher.Result{
		Items: []fetcher.Item{
			{Title: "one", Link: "https://example.com/1", GUID: "1"},
			{Title: "two", Link: "https://example.com/2", GUID: "2"},
		},
		HTTPStatus:   200,
		ResponseTime: 20 * time.Millisecond,
	}, nil
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	instances := newFakeInstances()

	s := New(testSchedulerConfig(), newFakeSources(src), instances, &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) { return okResult() }},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	s.Start()
	s.Start()

	waitFor(t, time.Second, func() bool { return instances.dueQueryCount() >= 1 })
	time.Sleep(50 * time.Millisecond)

	// Only one immediate pass ran; the timer interval is an hour.
	if got := instances.dueQueryCount(); got != 1 {
		t.Fatalf("expected a single due query, got %d", got)
	}
	if !s.Status().IsRunning {
		t.Fatalf("expected running scheduler")
	}

	s.Stop()
	if s.Status().IsRunning {
		t.Fatalf("expected stopped scheduler")
	}
}

func TestScheduler_StopDrainsInFlightJobs(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	s := New(testSchedulerConfig(), newFakeSources(src), newFakeInstances(inst), &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			once.Do(func() { close(started) })
			<-release
			return okResult()
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	<-started

	if got := s.Status().ActiveJobsCount; got != 1 {
		t.Fatalf("expected 1 active job, got %d", got)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	s.Stop()

	st := s.Status()
	if st.IsRunning {
		t.Fatalf("expected stopped scheduler")
	}
	if st.ActiveJobsCount != 0 {
		t.Fatalf("expected drained scheduler, got %d active", st.ActiveJobsCount)
	}
}

func TestScheduler_ConcurrencyCap(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	due := []feed.Instance{
		testInstance(src.ID), testInstance(src.ID), testInstance(src.ID),
		testInstance(src.ID), testInstance(src.ID),
	}

	cfg := testSchedulerConfig()
	cfg.MaxConcurrent = 2

	release := make(chan struct{})
	var mu sync.Mutex
	active, peak, total := 0, 0, 0

	s := New(cfg, newFakeSources(src), newFakeInstances(due...), &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			mu.Lock()
			active++
			total++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			<-release
			mu.Lock()
			active--
			mu.Unlock()
			return okResult()
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool { return s.Status().ActiveJobsCount == 2 })
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	gotPeak, gotTotal := peak, total
	mu.Unlock()
	if gotPeak != 2 {
		t.Fatalf("expected peak concurrency 2, got %d", gotPeak)
	}
	if gotTotal != 2 {
		t.Fatalf("expected only 2 dispatches in the first pass, got %d", gotTotal)
	}

	close(release)
	s.Stop()
}

func TestScheduler_InstanceNotDispatchedWhileInFlight(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)

	cfg := testSchedulerConfig()
	cfg.CheckInterval = 10 * time.Millisecond

	release := make(chan struct{})
	var mu sync.Mutex
	fetches := 0

	instances := newFakeInstances(inst)
	s := New(cfg, newFakeSources(src), instances, &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			<-release
			return okResult()
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	// Several passes run while the first poll is still blocked.
	waitFor(t, time.Second, func() bool { return instances.dueQueryCount() >= 4 })

	mu.Lock()
	got := fetches
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected a single in-flight poll, got %d", got)
	}

	close(release)
	s.Stop()
}

func TestScheduler_DeactivatesSourceAtFailureThreshold(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "flaky", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)
	inst.ConsecutiveFailures = 4
	inst.ReliabilityScore = 0.5

	sources := newFakeSources(src)
	instances := newFakeInstances(inst)
	metrics := &fakeMetrics{}
	notifier := &fakeNotifier{}

	s := New(testSchedulerConfig(), sources, instances, metrics, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			return nil, errors.New("connection refused")
		}},
		nil, nil, nil, notifier, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool { return sources.deactivatedCount() == 1 })
	s.Stop()

	calls := notifier.calls()
	if len(calls) != 1 || calls[0] != 5 {
		t.Fatalf("expected one deactivation notice with 5 failures, got %v", calls)
	}

	got, ok := instances.lastUpdate(inst.ID)
	if !ok {
		t.Fatalf("expected a health update")
	}
	if got.ConsecutiveFailures != 0 {
		t.Fatalf("expected counter reset after deactivation, got %d", got.ConsecutiveFailures)
	}
	if got.ReliabilityScore >= 0.5 {
		t.Fatalf("expected reliability penalty applied, got %v", got.ReliabilityScore)
	}

	s2, err := sources.GetByID(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s2.IsActive {
		t.Fatalf("expected deactivated source")
	}

	recs := metrics.appended()
	if len(recs) != 1 || recs[0].IsAvailable {
		t.Fatalf("expected one failed metric record, got %+v", recs)
	}
	if recs[0].Action != health.ActionDisable {
		t.Fatalf("expected disable recommendation, got %s", recs[0].Action)
	}
}

func TestScheduler_SuccessResetsFailureCounter(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)
	inst.ConsecutiveFailures = 3
	inst.ReliabilityScore = 0.7

	sources := newFakeSources(src)
	instances := newFakeInstances(inst)
	metrics := &fakeMetrics{}
	notifier := &fakeNotifier{}

	s := New(testSchedulerConfig(), sources, instances, metrics, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) { return okResult() }},
		nil, nil, nil, notifier, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool {
		_, ok := instances.lastUpdate(inst.ID)
		return ok
	})
	s.Stop()

	got, _ := instances.lastUpdate(inst.ID)
	if got.ConsecutiveFailures != 0 {
		t.Fatalf("expected counter reset on success, got %d", got.ConsecutiveFailures)
	}
	if diff := got.ReliabilityScore - 0.75; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected reliability 0.75, got %v", got.ReliabilityScore)
	}
	if got.LastSuccessAt == nil {
		t.Fatalf("expected last success timestamp")
	}
	if len(notifier.calls()) != 0 {
		t.Fatalf("expected no deactivation notice")
	}

	recs := metrics.appended()
	if len(recs) != 1 || !recs[0].IsAvailable {
		t.Fatalf("expected one successful metric record, got %+v", recs)
	}
	if recs[0].ArticlesNew != 2 {
		t.Fatalf("expected 2 new articles, got %d", recs[0].ArticlesNew)
	}
}

func TestScheduler_PollPanicIsIsolated(t *testing.T) {
	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)

	s := New(testSchedulerConfig(), newFakeSources(src), newFakeInstances(inst), &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			panic("boom")
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool { return s.Status().ActiveJobsCount == 0 })
	s.Stop()

	if s.Status().IsRunning {
		t.Fatalf("expected clean stop after a panicking poll")
	}
}

// ctxCheckedMetrics refuses writes on an expired context, the way a real
// driver would.
type ctxCheckedMetrics struct {
	fakeMetrics
}

func (f *ctxCheckedMetrics) Append(ctx context.Context, rec *health.MetricRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.fakeMetrics.Append(ctx, rec)
}

type ctxCheckedInstances struct {
	*fakeInstances
}

func (f ctxCheckedInstances) UpdateHealth(ctx context.Context, inst *feed.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.fakeInstances.UpdateHealth(ctx, inst)
}

func TestScheduler_FetchTimeoutIsRecorded(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.FetchTimeout = 30 * time.Millisecond

	src := &feed.Source{ID: uuid.New(), Name: "slow", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)

	instances := ctxCheckedInstances{newFakeInstances(inst)}
	metrics := &ctxCheckedMetrics{}

	s := New(cfg, newFakeSources(src), instances, metrics, fakeArticles{},
		fakeFetcher{fetch: func(ctx context.Context, _ string) (*fetcher.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool { return len(metrics.appended()) == 1 })
	s.Stop()

	recs := metrics.appended()
	if recs[0].IsAvailable {
		t.Fatalf("expected a failure record, got %+v", recs[0])
	}
	if recs[0].ErrorKind != health.ErrorTimeout {
		t.Fatalf("expected timeout classification, got %s", recs[0].ErrorKind)
	}

	got, ok := instances.lastUpdate(inst.ID)
	if !ok {
		t.Fatalf("expected the timeout outcome persisted")
	}
	if got.ConsecutiveFailures != 1 {
		t.Fatalf("expected failure counter 1, got %d", got.ConsecutiveFailures)
	}
}

func TestScheduler_StaleJobKeepsNewInFlightEntry(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.StopTimeout = 20 * time.Millisecond
	cfg.CheckInterval = 10 * time.Millisecond

	src := &feed.Source{ID: uuid.New(), Name: "example", Provider: feed.ProviderFeed, IsActive: true}
	inst := testInstance(src.ID)

	var mu sync.Mutex
	var gates []chan struct{}
	dispatches := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(gates)
	}
	gate := func(i int) chan struct{} {
		mu.Lock()
		defer mu.Unlock()
		return gates[i]
	}

	s := New(cfg, newFakeSources(src), newFakeInstances(inst), &fakeMetrics{}, fakeArticles{},
		fakeFetcher{fetch: func(context.Context, string) (*fetcher.Result, error) {
			ch := make(chan struct{})
			mu.Lock()
			gates = append(gates, ch)
			mu.Unlock()
			<-ch
			return okResult()
		}},
		nil, nil, nil, nil, quietLogger())

	s.Start()
	waitFor(t, time.Second, func() bool { return dispatches() == 1 })

	// Stop times out with the first poll still blocked, then a fresh
	// Start re-dispatches the same instance into a new in-flight set.
	s.Stop()
	s.Start()
	waitFor(t, time.Second, func() bool { return dispatches() == 2 })

	// The leftover job finishes now. Its cleanup must not free the
	// second poll's entry.
	close(gate(0))
	time.Sleep(50 * time.Millisecond)

	if got := s.Status().ActiveJobsCount; got != 1 {
		t.Fatalf("expected the second poll still tracked, got %d", got)
	}
	if got := dispatches(); got != 2 {
		t.Fatalf("expected no re-dispatch while the poll is in flight, got %d", got)
	}

	close(gate(1))
	s.Stop()
}

func TestScheduler_UpdateConfiguration(t *testing.T) {
	s := New(testSchedulerConfig(), nil, newFakeInstances(), &fakeMetrics{}, fakeArticles{},
		nil, nil, nil, nil, nil, quietLogger())

	max := 7
	interval := 45 * time.Second
	s.UpdateConfiguration(&max, &interval)

	st := s.Status()
	if st.MaxConcurrentJobs != 7 {
		t.Fatalf("expected max 7, got %d", st.MaxConcurrentJobs)
	}
	if st.CheckIntervalMs != 45000 {
		t.Fatalf("expected 45000ms, got %d", st.CheckIntervalMs)
	}

	bad := 0
	s.UpdateConfiguration(&bad, nil)
	if s.Status().MaxConcurrentJobs != 7 {
		t.Fatalf("expected invalid cap to be ignored")
	}
}
