package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mugulhan/smart-crawler/internal/pkg/analyzer"
	"github.com/mugulhan/smart-crawler/internal/pkg/checker"
	"github.com/mugulhan/smart-crawler/internal/pkg/extractor"
	"github.com/mugulhan/smart-crawler/internal/pkg/fetcher"
	"github.com/mugulhan/smart-crawler/internal/pkg/frontier"
	"github.com/mugulhan/smart-crawler/internal/pkg/scorer"
	"github.com/mugulhan/smart-crawler/internal/pkg/store"
	"github.com/mugulhan/smart-crawler/internal/pkg/types"
	"github.com/mugulhan/smart-crawler/internal/pkg/urlutil"
)

const DefaultMaxPages = 25

// Deps are the collaborators one coordinator works against. Status is the
// optional polling mirror; everything else is required.
type Deps struct {
	Jobs    store.JobStore
	Pages   store.PageStore
	Links   store.LinkStore
	Status  store.StatusStore
	Fetcher *fetcher.Fetcher
	Checker *checker.Checker
	Log     *logrus.Logger
}

// Coordinator drives crawl jobs through pending → running → completed or
// failed. One Run call owns one job end to end; several coordinators may
// run concurrently for different jobs, sharing nothing but the stores.
type Coordinator struct {
	deps     Deps
	maxPages int
	log      *logrus.Entry
}

func New(deps Deps, maxPages int) *Coordinator {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &Coordinator{
		deps:     deps,
		maxPages: maxPages,
		log:      deps.Log.WithField("component", "coordinator"),
	}
}

// NewJob builds a pending job record for a seed URL.
func NewJob(seedURL string) *types.CrawlJob {
	return &types.CrawlJob{
		ID:        uuid.New().String(),
		SeedURL:   seedURL,
		Status:    types.StatusPending,
		CreatedAt: time.Now(),
	}
}

// Run is the runCrawl entry point. It is idempotent: a job that is already
// running or finished is left alone. Per-page failures are recorded as
// data; only a setup problem (bad seed, unknown job) fails the job.
func (c *Coordinator) Run(ctx context.Context, jobID string) error {
	log := c.log.WithField("job_id", jobID)

	job, err := c.deps.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}
	if job.Status != types.StatusPending {
		log.WithField("status", job.Status).Info("job already picked up, nothing to do")
		return nil
	}

	seed, err := urlutil.Normalize(job.SeedURL)
	if err != nil {
		return c.failJob(ctx, jobID, types.JobCounts{}, fmt.Sprintf("invalid seed URL %q: %v", job.SeedURL, err))
	}
	ext, err := extractor.New(seed)
	if err != nil {
		return c.failJob(ctx, jobID, types.JobCounts{}, fmt.Sprintf("invalid seed URL %q: %v", job.SeedURL, err))
	}

	if err := c.deps.Jobs.UpdateJobStatus(ctx, jobID, types.StatusRunning, types.JobCounts{}, ""); err != nil {
		return fmt.Errorf("marking job %s running: %w", jobID, err)
	}
	c.mirror(ctx, jobID)
	log.WithField("seed", seed).Info("crawl started")
	start := time.Now()

	front := frontier.New(c.maxPages * 8)
	front.Push(seed)

	var counts types.JobCounts
	var discovered []*types.Link
	edges := make(map[string]bool)

	for counts.PagesVisited < c.maxPages {
		if ctx.Err() != nil {
			return c.cancelJob(ctx, jobID, counts)
		}
		pageURL, ok := front.Pop()
		if !ok {
			break
		}

		pageLinks := c.visitPage(ctx, ext, jobID, pageURL, &counts)
		if ctx.Err() != nil {
			return c.cancelJob(ctx, jobID, counts)
		}
		counts.PagesVisited++

		for _, link := range pageLinks {
			key := link.Source + "\x00" + link.Target
			if edges[key] {
				continue
			}
			edges[key] = true
			discovered = append(discovered, link)
			counts.TotalLinks++
			if link.Type == types.LinkInternal {
				counts.InternalLinks++
				front.Push(link.Target)
			} else {
				counts.ExternalLinks++
			}
			if err := c.deps.Links.UpsertLink(ctx, jobID, link); err != nil {
				log.WithError(err).Error("persisting link")
			}
		}

		if err := c.deps.Jobs.UpdateJobStatus(ctx, jobID, types.StatusRunning, counts, ""); err != nil {
			log.WithError(err).Error("updating job progress")
		}
		c.mirror(ctx, jobID)
	}

	// One status-check pass near completion, over links in discovery order.
	c.deps.Checker.Check(ctx, discovered)
	if ctx.Err() != nil {
		return c.cancelJob(ctx, jobID, counts)
	}
	for _, link := range discovered {
		if link.StatusCode == nil && !link.Broken {
			continue
		}
		if link.Broken {
			counts.BrokenLinks++
		}
		if err := c.deps.Links.UpsertLink(ctx, jobID, link); err != nil {
			log.WithError(err).Error("persisting checked link")
		}
	}

	if err := c.deps.Jobs.UpdateJobStatus(ctx, jobID, types.StatusCompleted, counts, ""); err != nil {
		return fmt.Errorf("marking job %s completed: %w", jobID, err)
	}
	c.mirror(ctx, jobID)
	log.WithFields(logrus.Fields{
		"pages":    counts.PagesVisited,
		"links":    counts.TotalLinks,
		"broken":   counts.BrokenLinks,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("crawl completed")
	return nil
}

// visitPage fetches, analyzes and scores one URL, persists the PageInfo,
// and returns the links found on it. A fetch failure yields a page record
// with status 0 and whatever scores the absent signals produce.
func (c *Coordinator) visitPage(ctx context.Context, ext *extractor.Extractor, jobID, pageURL string, counts *types.JobCounts) []*types.Link {
	log := c.log.WithFields(logrus.Fields{"job_id": jobID, "url": pageURL})

	result, err := c.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		kind := "connection"
		if fetchErr, ok := err.(*fetcher.FetchError); ok {
			kind = string(fetchErr.Kind)
		}
		log.WithField("kind", kind).Warn("fetch failed")

		signals := types.PageSignals{}
		page := &types.PageInfo{
			URL:        pageURL,
			StatusCode: 0,
			FetchError: kind,
			Scores:     scorer.Score(signals),
			FetchedAt:  time.Now(),
		}
		if err := c.deps.Pages.CreatePage(ctx, jobID, page); err != nil {
			log.WithError(err).Error("persisting failed page")
		}
		return nil
	}

	analysis := analyzer.Analyze(pageURL, result.Body)
	elapsedMs := result.Elapsed.Milliseconds()
	signals := analysis.Signals(pageURL, result.StatusCode, elapsedMs, len(result.Body))

	page := &types.PageInfo{
		URL:             pageURL,
		StatusCode:      result.StatusCode,
		Title:           analysis.Title,
		MetaDescription: analysis.MetaDescription,
		ContentType:     result.ContentType,
		FetchMillis:     elapsedMs,
		PageSize:        len(result.Body),
		Structure:       analysis.Structure,
		SchemaBlocks:    analysis.SchemaBlocks,
		Scores:          scorer.Score(signals),
		FetchedAt:       time.Now(),
	}
	if err := c.deps.Pages.CreatePage(ctx, jobID, page); err != nil {
		log.WithError(err).Error("persisting page")
	}
	log.WithFields(logrus.Fields{
		"status":  result.StatusCode,
		"elapsed": elapsedMs,
		"overall": page.Scores.Overall,
	}).Debug("page audited")

	extracted := ext.Extract(pageURL, result.Body)
	links := make([]*types.Link, len(extracted))
	for i := range extracted {
		links[i] = &extracted[i]
	}
	return links
}

// failJob records a setup failure and surfaces it to the caller.
func (c *Coordinator) failJob(ctx context.Context, jobID string, counts types.JobCounts, message string) error {
	if err := c.deps.Jobs.UpdateJobStatus(ctx, jobID, types.StatusFailed, counts, message); err != nil {
		return fmt.Errorf("marking job %s failed: %w", jobID, err)
	}
	c.mirror(ctx, jobID)
	c.log.WithField("job_id", jobID).WithField("reason", message).Warn("job failed")
	return fmt.Errorf("job %s failed: %s", jobID, message)
}

// cancelJob finalizes a cancelled job. Results persisted so far stay; the
// terminal write uses a fresh context because the job's own is dead.
func (c *Coordinator) cancelJob(ctx context.Context, jobID string, counts types.JobCounts) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.deps.Jobs.UpdateJobStatus(writeCtx, jobID, types.StatusFailed, counts, "job cancelled"); err != nil {
		c.log.WithField("job_id", jobID).WithError(err).Error("marking cancelled job")
	}
	c.mirror(writeCtx, jobID)
	c.log.WithField("job_id", jobID).Info("job cancelled, partial results kept")
	return ctx.Err()
}

// mirror pushes the current job snapshot to the status store, best effort.
func (c *Coordinator) mirror(ctx context.Context, jobID string) {
	if c.deps.Status == nil {
		return
	}
	job, err := c.deps.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return
	}
	if err := c.deps.Status.SetStatus(ctx, *job); err != nil {
		c.log.WithField("job_id", jobID).WithError(err).Warn("status mirror write failed")
	}
}
