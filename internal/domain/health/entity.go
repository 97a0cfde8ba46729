package health

import (
	"time"

	"github.com/google/uuid"
)

type ErrorKind string

const (
	ErrorNone    ErrorKind = ""
	ErrorTimeout ErrorKind = "timeout"
	ErrorDNS     ErrorKind = "dns"
	ErrorHTTP    ErrorKind = "http"
	ErrorParse   ErrorKind = "parse"
	ErrorStorage ErrorKind = "storage"
)

type RecommendedAction string

const (
	ActionIncrease RecommendedAction = "increase"
	ActionDecrease RecommendedAction = "decrease"
	ActionMaintain RecommendedAction = "maintain"
	ActionDisable  RecommendedAction = "disable"
)

// MetricRecord is one immutable row per fetch attempt, used only for
// windowed aggregation.
type MetricRecord struct {
	ID         uuid.UUID
	InstanceID uuid.UUID
	CheckedAt  time.Time

	ResponseTime time.Duration
	IsAvailable  bool
	HTTPStatus   int

	ArticlesFound     int
	ArticlesNew       int
	ArticlesDuplicate int

	ErrorKind    ErrorKind
	ErrorMessage string

	AvgContentLength  float64
	AvgLangConfidence float64

	Action RecommendedAction
}

type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusWarning   Status = "warning"
	StatusCritical  Status = "critical"
	StatusDown      Status = "down"
)

// StatusForScore maps an overall [0,100] score onto the documented bands.
func StatusForScore(score float64) Status {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 75:
		return StatusGood
	case score >= 50:
		return StatusWarning
	case score >= 25:
		return StatusCritical
	default:
		return StatusDown
	}
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Alert is generated fresh on each analysis pass; retention and resolution
// belong to the caller.
type Alert struct {
	ID        uuid.UUID `json:"id"`
	SourceID  uuid.UUID `json:"source_id"`
	Severity  Severity  `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Resolved  bool      `json:"resolved"`
}

type PublishingPattern struct {
	PeakHours        []int   `json:"peak_hours"`
	ConsistencyScore float64 `json:"consistency_score"`
	BatchPublishing  bool    `json:"batch_publishing"`
}

type VolumeMetrics struct {
	DataAvailable bool `json:"data_available"`

	ArticlesPerDay     float64           `json:"articles_per_day"`
	ArticlesPerHour    float64           `json:"articles_per_hour"`
	AvgGapMinutes      float64           `json:"avg_gap_minutes"`
	Pattern            PublishingPattern `json:"pattern"`
	Trend7d            float64           `json:"trend_7d"`
	Trend30d           float64           `json:"trend_30d"`
	IsVolumeAnomaly    bool              `json:"is_volume_anomaly"`

	Score float64 `json:"score"`
}

type QualityMetrics struct {
	DataAvailable bool `json:"data_available"`

	AvgTitleLength           float64 `json:"avg_title_length"`
	AvgContentLength         float64 `json:"avg_content_length"`
	MissingContentPercentage float64 `json:"missing_content_percentage"`
	DuplicatePercentage      float64 `json:"duplicate_percentage"`
	LanguageConsistency      float64 `json:"language_consistency"`
	ReadabilityScore         float64 `json:"readability_score"`
	SpellingErrorRate        float64 `json:"spelling_error_rate"`
	AuthorPresentPct         float64 `json:"author_present_pct"`
	DatePresentPct           float64 `json:"date_present_pct"`
	DescriptionPresentPct    float64 `json:"description_present_pct"`

	Score float64 `json:"score"`
}

type SuspiciousPattern struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

type CredibilityMetrics struct {
	DataAvailable bool `json:"data_available"`

	UniqueAuthors      int                 `json:"unique_authors"`
	TopAuthorShare     float64             `json:"top_author_share"`
	DomainConsistency  float64             `json:"domain_consistency"`
	SuspiciousPatterns []SuspiciousPattern `json:"suspicious_patterns"`
	UnusualHoursPct    float64             `json:"unusual_hours_pct"`
	ClickbaitScore     float64             `json:"clickbait_score"`

	Score float64 `json:"score"`
}

type TechnicalMetrics struct {
	DataAvailable bool `json:"data_available"`

	UptimePercentage float64        `json:"uptime_percentage"`
	AvgResponseMs    float64        `json:"avg_response_ms"`
	ErrorRate        float64        `json:"error_rate"`
	LastSuccessAt    *time.Time     `json:"last_success_at"`
	ParseSuccessRate float64        `json:"parse_success_rate"`
	HTTPErrorCodes   map[int]int    `json:"http_error_codes"`
	TimeoutCount     int            `json:"timeout_count"`
	DNSErrorCount    int            `json:"dns_error_count"`

	Score float64 `json:"score"`
}

type RelevanceMetrics struct {
	DataAvailable bool `json:"data_available"`

	TopicDiversity    float64  `json:"topic_diversity"`
	TrendingTopics    []string `json:"trending_topics"`
	AvgIngestDelayHrs float64  `json:"avg_ingest_delay_hrs"`
	BreakingRatio     float64  `json:"breaking_ratio"`
	StaleRatio        float64  `json:"stale_ratio"`

	Score float64 `json:"score"`
}

type SpamMetrics struct {
	DataAvailable bool `json:"data_available"`

	ExcessiveCapsRatio  float64  `json:"excessive_caps_ratio"`
	SuspiciousKeywords  []string `json:"suspicious_keywords"`
	AdContentRatio      float64  `json:"ad_content_ratio"`
	BatchPublishCount   int      `json:"batch_publish_count"`
	IdenticalTimestamps int      `json:"identical_timestamps"`

	Score float64 `json:"score"`
}

type LocalizationMetrics struct {
	DataAvailable bool `json:"data_available"`

	ExpectedLanguage     string             `json:"expected_language"`
	LanguageDistribution map[string]float64 `json:"language_distribution"`
	TranslationQuality   float64            `json:"translation_quality"`
	CulturalRelevance    float64            `json:"cultural_relevance"`
	UnitsRelevance       float64            `json:"units_relevance"`

	Score float64 `json:"score"`
}

// Dashboard is a computed view, regenerated wholesale and never partially
// mutated.
type Dashboard struct {
	SourceID    uuid.UUID `json:"source_id"`
	SourceName  string    `json:"source_name"`
	GeneratedAt time.Time `json:"generated_at"`

	Volume       VolumeMetrics       `json:"volume"`
	Quality      QualityMetrics      `json:"quality"`
	Credibility  CredibilityMetrics  `json:"credibility"`
	Technical    TechnicalMetrics    `json:"technical"`
	Relevance    RelevanceMetrics    `json:"relevance"`
	Spam         SpamMetrics         `json:"spam"`
	Localization LocalizationMetrics `json:"localization"`

	OverallScore    float64  `json:"overall_score"`
	HealthStatus    Status   `json:"health_status"`
	Alerts          []Alert  `json:"alerts"`
	Recommendations []string `json:"recommendations"`
}
