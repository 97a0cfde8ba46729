package scheduler

import (
	"context"
	"strings"
	"time"

	"feedpulse/internal/domain/feed"
	"feedpulse/internal/domain/health"
	"feedpulse/internal/infrastructure/fetcher"
	"feedpulse/internal/refresh"

	"github.com/google/uuid"
)

// refreshSummaryWindow bounds the per-instance record read that feeds the
// adaptive interval recomputation.
const refreshSummaryWindow = 24 * time.Hour

// storeTimeout bounds the post-fetch write-backs independently of the
// fetch deadline.
const storeTimeout = 30 * time.Second

// executePoll is one complete fetch+ingest unit of work: fetch, store new
// articles, append the metric record, fold the outcome into the instance's
// health fields, recompute the adaptive interval, and deactivate the
// source when the failure threshold is crossed. Fetch and parse errors are
// classified and recorded here; they never escape to the loop.
func (s *Scheduler) executePoll(inst feed.Instance) {
	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), s.fetchTimeout())
	defer cancelFetch()

	now := time.Now().UTC()

	src, err := s.sources.GetByID(fetchCtx, inst.SourceID)
	if err != nil {
		s.logger.Printf("[Scheduler] source lookup failed | instance=%s err=%v", inst.ID, err)
		return
	}

	res, fetchErr := s.fetcherFor(src.Provider).Fetch(fetchCtx, inst.FetchURL)

	// The write-backs run on their own deadline. After a fetch timeout
	// fetchCtx is already expired, and a timeout outcome that cannot be
	// recorded would never advance the failure counter.
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rec := health.MetricRecord{
		InstanceID: inst.ID,
		CheckedAt:  now,
	}
	if res != nil {
		rec.ResponseTime = res.ResponseTime
		rec.HTTPStatus = res.HTTPStatus
	}

	if fetchErr != nil {
		fe := fetcher.Classify(fetchErr)
		rec.IsAvailable = false
		rec.ErrorKind = fe.Kind
		rec.ErrorMessage = fe.Detail
		if fe.HTTPStatus > 0 {
			rec.HTTPStatus = fe.HTTPStatus
		}
		inst.ApplyFailure(now, s.cfg.ReliabilityPenalty)
		s.logger.Printf("[Scheduler] poll failed | instance=%s kind=%s failures=%d err=%v",
			inst.ID, fe.Kind, inst.ConsecutiveFailures, fetchErr)
	} else {
		newCount := s.ingest(ctx, src, &inst, res, &rec)
		rec.IsAvailable = true
		inst.ApplySuccess(now, s.cfg.ReliabilityReward, newCount)
		s.logger.Printf("[Scheduler] poll ok | instance=%s found=%d new=%d response=%s",
			inst.ID, rec.ArticlesFound, newCount, rec.ResponseTime)
	}

	priorInterval := inst.EffectiveIntervalMinutes()
	newInterval := s.recomputeInterval(ctx, &inst, src.Language)
	rec.Action = recommendAction(inst.ConsecutiveFailures, priorInterval, newInterval, s.failureThreshold())

	// Best-effort health tracking: losing one metric write is
	// acceptable; losing the scheduler is not.
	if err := s.metrics.Append(ctx, &rec); err != nil {
		s.logger.Printf("[Scheduler] metric write failed | instance=%s err=%v", inst.ID, err)
	}
	if err := s.instances.UpdateHealth(ctx, &inst); err != nil {
		s.logger.Printf("[Scheduler] health update failed | instance=%s err=%v", inst.ID, err)
	}

	if inst.ConsecutiveFailures >= s.failureThreshold() {
		s.deactivate(ctx, src.ID, &inst)
	}
}

// ingest normalizes fetched items into articles, detects their language
// and stores them, returning how many were genuinely new.
func (s *Scheduler) ingest(ctx context.Context, src *feed.Source, inst *feed.Instance, res *fetcher.Result, rec *health.MetricRecord) int {
	if res == nil {
		return 0
	}
	rec.ArticlesFound = len(res.Items)
	if len(res.Items) == 0 {
		return 0
	}

	articles := make([]feed.Article, 0, len(res.Items))
	var contentLen, langConfidence float64
	for _, item := range res.Items {
		if strings.TrimSpace(item.Link) == "" && strings.TrimSpace(item.GUID) == "" {
			continue
		}
		a := feed.Article{
			SourceID:    src.ID,
			InstanceID:  inst.ID,
			Title:       item.Title,
			Link:        item.Link,
			Author:      item.Author,
			Content:     item.Body,
			Description: item.Description,
			GUID:        item.GUID,
			PublishedAt: item.PublishedAt,
			CreatedAt:   time.Now().UTC(),
		}
		if s.detector != nil {
			det := s.detector.Detect(item.Title + " " + item.Body)
			a.Language = det.Language
			a.LangConfidence = det.Confidence
			langConfidence += det.Confidence
		}
		contentLen += float64(len(a.Content))
		articles = append(articles, a)
	}

	if n := len(articles); n > 0 {
		rec.AvgContentLength = contentLen / float64(n)
		rec.AvgLangConfidence = langConfidence / float64(n)
	}

	newCount, err := s.articles.UpsertBatch(ctx, articles)
	if err != nil {
		s.logger.Printf("[Scheduler] article store failed | instance=%s err=%v", inst.ID, err)
		newCount = 0
	}
	rec.ArticlesNew = newCount
	rec.ArticlesDuplicate = len(articles) - newCount
	return newCount
}

// recomputeInterval runs the adaptive calculator after every poll, success
// or failure, and persists the result. Returns the new interval in
// minutes, or the current effective interval when adaptive refresh is off.
func (s *Scheduler) recomputeInterval(ctx context.Context, inst *feed.Instance, sourceLang string) float64 {
	if s.calculator == nil {
		return inst.EffectiveIntervalMinutes()
	}

	var records []health.MetricRecord
	if s.metrics != nil {
		recs, err := s.metrics.ListSinceByInstance(ctx, inst.ID, time.Now().UTC().Add(-refreshSummaryWindow))
		if err == nil {
			records = recs
		}
	}

	sum := refresh.Summarize(inst, records)
	minutes := s.calculator.NextIntervalMinutes(inst, sourceLang, sum)
	if inst.AdaptiveRefresh && minutes > 0 && minutes != inst.CurrentIntervalMinutes {
		inst.CurrentIntervalMinutes = minutes
		if err := s.instances.UpdateInterval(ctx, inst.ID, minutes); err != nil {
			s.logger.Printf("[Scheduler] interval update failed | instance=%s err=%v", inst.ID, err)
		}
	}
	return minutes
}

// deactivate turns the owning source off after sustained failure and
// clears the counter so the instance leaves the due-set in a clean state.
// Reactivation is an operator action.
func (s *Scheduler) deactivate(ctx context.Context, sourceID uuid.UUID, inst *feed.Instance) {
	failures := inst.ConsecutiveFailures

	if err := s.sources.SetActive(ctx, sourceID, false); err != nil {
		s.logger.Printf("[Scheduler] deactivation failed | source=%s err=%v", sourceID, err)
		return
	}

	inst.ConsecutiveFailures = 0
	if err := s.instances.UpdateHealth(ctx, inst); err != nil {
		s.logger.Printf("[Scheduler] counter reset failed | instance=%s err=%v", inst.ID, err)
	}

	s.logger.Printf("[Scheduler] source deactivated | source=%s instance=%s failures=%d", sourceID, inst.ID, failures)
	s.notifier.SourceDeactivated(sourceID, inst.ID, failures)
}

func (s *Scheduler) fetchTimeout() time.Duration {
	if s.cfg.FetchTimeout > 0 {
		return s.cfg.FetchTimeout
	}
	return 15 * time.Second
}

func (s *Scheduler) failureThreshold() int {
	if s.cfg.FailureThreshold > 0 {
		return s.cfg.FailureThreshold
	}
	return 5
}

// recommendAction derives the per-record advisory action from the poll
// outcome and the interval movement.
func recommendAction(failures int, priorInterval, newInterval float64, threshold int) health.RecommendedAction {
	if failures >= threshold {
		return health.ActionDisable
	}
	switch {
	case newInterval < priorInterval:
		return health.ActionIncrease
	case newInterval > priorInterval:
		return health.ActionDecrease
	default:
		return health.ActionMaintain
	}
}
