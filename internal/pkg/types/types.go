package types

import (
	"encoding/json"
	"time"
)

// Lifecycle states of a crawl job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Classification of a discovered link relative to the seed host.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// CrawlJob is one requested crawl of a site, from seed to completion.
type CrawlJob struct {
	ID           string     `json:"id"`
	SeedURL      string     `json:"seed_url"`
	Status       JobStatus  `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Counts       JobCounts  `json:"counts"`
}

// Aggregate counters maintained by the coordinator as the job progresses.
type JobCounts struct {
	PagesVisited  int `json:"pages_visited"`
	TotalLinks    int `json:"total_links"`
	InternalLinks int `json:"internal_links"`
	ExternalLinks int `json:"external_links"`
	BrokenLinks   int `json:"broken_links"`
}

// PageInfo holds everything recorded for one fetched URL within a job.
type PageInfo struct {
	URL             string         `json:"url"`
	StatusCode      int            `json:"status_code"`
	Title           string         `json:"title"`
	MetaDescription string         `json:"meta_description"`
	ContentType     string         `json:"content_type"`
	FetchMillis     int64          `json:"fetch_millis"`
	PageSize        int            `json:"page_size"`
	Structure       *StructureNode `json:"structure,omitempty"`
	SchemaBlocks    []SchemaBlock  `json:"schema_blocks,omitempty"`
	Scores          AuditScore     `json:"scores"`
	FetchError      string         `json:"fetch_error,omitempty"`
	FetchedAt       time.Time      `json:"fetched_at"`
}

// Link is a directed edge from a crawled page to a discovered URL.
// StatusCode stays nil until the status checker probes the target,
// or forever if the link fell outside the check cap.
type Link struct {
	Source        string   `json:"source"`
	Target        string   `json:"target"`
	Type          LinkType `json:"type"`
	AnchorText    string   `json:"anchor_text"`
	ParentElement string   `json:"parent_element"`
	StatusCode    *int     `json:"status_code,omitempty"`
	Broken        bool     `json:"broken"`
}

// StructureNode is one element of the semantic page tree. Only landmark
// and container tags are tracked, to a limited depth.
type StructureNode struct {
	Tag         string           `json:"tag"`
	ID          string           `json:"id,omitempty"`
	Classes     []string         `json:"classes,omitempty"`
	ChildCounts map[string]int   `json:"child_counts,omitempty"`
	Children    []*StructureNode `json:"children,omitempty"`
}

// SchemaBlock is one <script type="application/ld+json"> block. Exactly one
// of Raw or Err is set: a block that fails to parse keeps its error instead
// of aborting the page.
type SchemaBlock struct {
	Raw json.RawMessage `json:"raw,omitempty"`
	Err string          `json:"err,omitempty"`
}

// PageSignals is the fixed input of the scorer. Every field the rule
// tables consult lives here, so a page either has a signal or measurably
// lacks it; there are no optional keys.
type PageSignals struct {
	StatusCode     int
	HTTPS          bool
	FetchMillis    int64
	PageSize       int
	Title          string
	TitleCount     int
	MetaDesc       string
	HasMetaDesc    bool
	HasCanonical   bool
	HasViewport    bool
	HasDoctype     bool
	HasCharset     bool
	RobotsNoindex  bool
	ImageCount     int
	ImagesNoAlt    int
	H1Count        int
	SkippedLevels  int
	Landmarks      map[string]bool
	SchemaCount    int
	SchemaErrors   int
	MixedResources int
}

// AuditScore carries the four category scores plus the weighted overall
// number and the findings that explain the deductions.
type AuditScore struct {
	Performance   int            `json:"performance"`
	Accessibility int            `json:"accessibility"`
	BestPractices int            `json:"best_practices"`
	SEO           int            `json:"seo"`
	Overall       int            `json:"overall"`
	RulesVersion  int            `json:"rules_version"`
	Audits        []AuditFinding `json:"audits,omitempty"`
}

// AuditFinding is a single human-readable audit note.
type AuditFinding struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}
