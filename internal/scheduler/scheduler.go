package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/domain/feed"
	"feedpulse/internal/infrastructure/fetcher"
	"feedpulse/internal/language"
	"feedpulse/internal/refresh"
	"feedpulse/internal/repository"

	"github.com/google/uuid"
)

type state int

const (
	stateStopped state = iota
	stateRunning
	stateDraining
)

// Notifier receives terminal events from the polling loop. Implementations
// must not block.
type Notifier interface {
	SourceDeactivated(sourceID uuid.UUID, instanceID uuid.UUID, failures int)
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) SourceDeactivated(uuid.UUID, uuid.UUID, int) {}

type Status struct {
	IsRunning         bool  `json:"is_running"`
	ActiveJobsCount   int   `json:"active_jobs_count"`
	MaxConcurrentJobs int   `json:"max_concurrent_jobs"`
	CheckIntervalMs   int64 `json:"check_interval_ms"`
}

// Scheduler drives periodic polling with bounded concurrency. It owns its
// lifecycle (Stopped -> Running -> Draining -> Stopped) and all of its
// concurrency primitives, so multiple instances can coexist.
type Scheduler struct {
	cfg config.SchedulerConfig

	sources   repository.FeedSourceRepository
	instances repository.FeedInstanceRepository
	metrics   repository.HealthMetricRepository
	articles  repository.ArticleRepository

	feedFetcher    fetcher.Fetcher
	scraperFetcher fetcher.Fetcher
	calculator     *refresh.Calculator
	detector       language.Detector
	notifier       Notifier
	logger         *log.Logger

	mu            sync.Mutex
	st            state
	maxConcurrent int
	checkInterval time.Duration
	filter        repository.DueFilter
	inflight      map[uuid.UUID]struct{}
	stopCh        chan struct{}
	loopDone      chan struct{}
	jobs          sync.WaitGroup
}

func New(
	cfg config.SchedulerConfig,
	sources repository.FeedSourceRepository,
	instances repository.FeedInstanceRepository,
	metrics repository.HealthMetricRepository,
	articles repository.ArticleRepository,
	feedFetcher fetcher.Fetcher,
	scraperFetcher fetcher.Fetcher,
	calculator *refresh.Calculator,
	detector language.Detector,
	notifier Notifier,
	logger *log.Logger,
) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	checkInterval := cfg.CheckInterval
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	return &Scheduler{
		cfg:            cfg,
		sources:        sources,
		instances:      instances,
		metrics:        metrics,
		articles:       articles,
		feedFetcher:    feedFetcher,
		scraperFetcher: scraperFetcher,
		calculator:     calculator,
		detector:       detector,
		notifier:       notifier,
		logger:         logger,
		maxConcurrent:  maxConcurrent,
		checkInterval:  checkInterval,
		inflight:       make(map[uuid.UUID]struct{}),
	}
}

// SetFilter narrows which instances the due query selects. Takes effect on
// the next pass.
func (s *Scheduler) SetFilter(f repository.DueFilter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Start transitions to Running and performs one immediate pass before
// arming the periodic timer. Calling Start on a running scheduler is a
// no-op: there is never more than one loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.st != stateStopped {
		s.mu.Unlock()
		return
	}
	s.st = stateRunning
	s.inflight = make(map[uuid.UUID]struct{})
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	stopCh := s.stopCh
	loopDone := s.loopDone
	s.mu.Unlock()

	s.logger.Printf("[Scheduler] started | check_interval=%s max_concurrent=%d", s.currentInterval(), s.currentMax())

	go s.run(stopCh, loopDone)
}

func (s *Scheduler) run(stopCh, loopDone chan struct{}) {
	defer close(loopDone)

	// Immediate first pass, then timer-driven.
	s.pass()

	for {
		select {
		case <-stopCh:
			return
		case <-time.After(s.currentInterval()):
			s.pass()
		}
	}
}

// Stop cancels the timer, then drains: it waits up to the configured stop
// timeout for in-flight jobs. Jobs that outlive the timeout keep running
// and are reported, not cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return
	}
	s.st = stateDraining
	close(s.stopCh)
	loopDone := s.loopDone
	s.mu.Unlock()

	<-loopDone

	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()

	timeout := s.cfg.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done:
		s.logger.Printf("[Scheduler] stopped | drained=true")
	case <-time.After(timeout):
		s.mu.Lock()
		active := len(s.inflight)
		s.mu.Unlock()
		s.logger.Printf("[Scheduler] stopped | drained=false active_jobs=%d", active)
	}

	s.mu.Lock()
	s.st = stateStopped
	s.mu.Unlock()
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		IsRunning:         s.st == stateRunning,
		ActiveJobsCount:   len(s.inflight),
		MaxConcurrentJobs: s.maxConcurrent,
		CheckIntervalMs:   s.checkInterval.Milliseconds(),
	}
}

// UpdateConfiguration adjusts the concurrency cap and tick period at
// runtime. Nil fields keep their current value; the new interval applies
// from the next tick.
func (s *Scheduler) UpdateConfiguration(maxConcurrent *int, checkInterval *time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if maxConcurrent != nil && *maxConcurrent > 0 {
		s.maxConcurrent = *maxConcurrent
	}
	if checkInterval != nil && *checkInterval > 0 {
		s.checkInterval = *checkInterval
	}
	s.logger.Printf("[Scheduler] configuration updated | check_interval=%s max_concurrent=%d", s.checkInterval, s.maxConcurrent)
}

func (s *Scheduler) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkInterval
}

func (s *Scheduler) currentMax() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConcurrent
}

// pass queries due instances and dispatches as many as the cap allows.
// "No due feeds" is a normal, silent outcome. A single instance is never
// dispatched while a prior poll for it is still in flight.
func (s *Scheduler) pass() {
	s.mu.Lock()
	if s.st != stateRunning {
		s.mu.Unlock()
		return
	}
	filter := s.filter
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.instances.ListDue(ctx, time.Now().UTC(), filter, 100)
	if err != nil {
		s.logger.Printf("[Scheduler] due query failed | err=%v", err)
		return
	}

	for i := range due {
		inst := due[i]

		s.mu.Lock()
		if s.st != stateRunning {
			s.mu.Unlock()
			return
		}
		if _, running := s.inflight[inst.ID]; running {
			s.mu.Unlock()
			continue
		}
		if len(s.inflight) >= s.maxConcurrent {
			s.mu.Unlock()
			// Remaining due instances stay due and are picked up
			// on the next pass.
			return
		}
		s.inflight[inst.ID] = struct{}{}
		s.jobs.Add(1)
		inflight := s.inflight
		s.mu.Unlock()

		go s.runJob(inst, inflight)
	}
}

// runJob executes one poll with full failure isolation: nothing that
// happens inside a unit of work can abort the pass or other feeds' work.
// The job clears itself from the in-flight set it was registered in; a
// leftover job from before an undrained Stop must not touch the set a
// later Start created.
func (s *Scheduler) runJob(inst feed.Instance, inflight map[uuid.UUID]struct{}) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[Scheduler] poll panic recovered | instance=%s panic=%v", inst.ID, r)
		}
		s.mu.Lock()
		delete(inflight, inst.ID)
		s.mu.Unlock()
		s.jobs.Done()
	}()

	s.executePoll(inst)
}

func (s *Scheduler) fetcherFor(kind feed.ProviderKind) fetcher.Fetcher {
	if kind == feed.ProviderScraper && s.scraperFetcher != nil {
		return s.scraperFetcher
	}
	return s.feedFetcher
}
