package store

import (
	"context"
	"errors"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

var ErrJobNotFound = errors.New("crawl job not found")

// JobStore owns CrawlJob records. The engine only ever mutates a job
// through UpdateJobStatus, so a backing store can serialize writes per job.
type JobStore interface {
	CreateJob(ctx context.Context, job *types.CrawlJob) error
	GetJob(ctx context.Context, jobID string) (*types.CrawlJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status types.JobStatus, counts types.JobCounts, errorMessage string) error
	ListJobs(ctx context.Context) ([]*types.CrawlJob, error)
}

// PageStore persists per-page audit results. CreatePage is an upsert keyed
// by (job, normalized URL): revisiting a URL within a job updates the
// existing record rather than duplicating it.
type PageStore interface {
	CreatePage(ctx context.Context, jobID string, page *types.PageInfo) error
	ListPages(ctx context.Context, jobID string) ([]*types.PageInfo, error)
}

// LinkStore persists the link graph. UpsertLink is keyed by
// (job, source, target); insertion order is preserved for presentation.
type LinkStore interface {
	UpsertLink(ctx context.Context, jobID string, link *types.Link) error
	ListLinks(ctx context.Context, jobID string) ([]*types.Link, error)
}

// Snapshot is the read contract consumed by status pollers: job state,
// pages with scores, and the link graph edges.
type Snapshot struct {
	Job   types.CrawlJob   `json:"job"`
	Pages []types.PageInfo `json:"pages"`
	Links []types.Link     `json:"links"`
}

// ReadView aggregates one job's records for dashboards.
type ReadView interface {
	JobSnapshot(ctx context.Context, jobID string) (*Snapshot, error)
}

// StatusStore mirrors job status to a fast external store for live
// polling. Mirror writes are best effort and never fail a crawl.
type StatusStore interface {
	SetStatus(ctx context.Context, job types.CrawlJob) error
	GetStatus(ctx context.Context, jobID string) (types.CrawlJob, bool, error)
}
