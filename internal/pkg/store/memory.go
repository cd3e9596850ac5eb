package store

import (
	"context"
	"sync"
	"time"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

// MemoryStore is the in-process implementation of every store contract,
// used by tests and single-binary deployments. All methods copy records on
// the way in and out so callers never share memory with the store.
type MemoryStore struct {
	mu       sync.Mutex
	jobs     map[string]*types.CrawlJob
	jobOrder []string
	pages    map[string]map[string]*types.PageInfo
	pageURLs map[string][]string
	links    map[string]map[string]*types.Link
	linkKeys map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]*types.CrawlJob),
		pages:    make(map[string]map[string]*types.PageInfo),
		pageURLs: make(map[string][]string),
		links:    make(map[string]map[string]*types.Link),
		linkKeys: make(map[string][]string),
	}
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *types.CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *job
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if _, exists := m.jobs[stored.ID]; !exists {
		m.jobOrder = append(m.jobOrder, stored.ID)
	}
	m.jobs[stored.ID] = &stored
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, jobID string) (*types.CrawlJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *MemoryStore) UpdateJobStatus(ctx context.Context, jobID string, status types.JobStatus, counts types.JobCounts, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	now := time.Now()
	if status == types.StatusRunning && job.StartedAt == nil {
		job.StartedAt = &now
	}
	if status.Terminal() && job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	job.Status = status
	job.Counts = counts
	job.ErrorMessage = errorMessage
	return nil
}

func (m *MemoryStore) ListJobs(ctx context.Context) ([]*types.CrawlJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*types.CrawlJob, 0, len(m.jobOrder))
	for _, id := range m.jobOrder {
		copied := *m.jobs[id]
		jobs = append(jobs, &copied)
	}
	return jobs, nil
}

func (m *MemoryStore) CreatePage(ctx context.Context, jobID string, page *types.PageInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byURL, ok := m.pages[jobID]
	if !ok {
		byURL = make(map[string]*types.PageInfo)
		m.pages[jobID] = byURL
	}
	if _, exists := byURL[page.URL]; !exists {
		m.pageURLs[jobID] = append(m.pageURLs[jobID], page.URL)
	}
	stored := *page
	byURL[page.URL] = &stored
	return nil
}

func (m *MemoryStore) ListPages(ctx context.Context, jobID string) ([]*types.PageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	urls := m.pageURLs[jobID]
	pages := make([]*types.PageInfo, 0, len(urls))
	for _, url := range urls {
		copied := *m.pages[jobID][url]
		pages = append(pages, &copied)
	}
	return pages, nil
}

func linkKey(link *types.Link) string {
	return link.Source + "\x00" + link.Target
}

func (m *MemoryStore) UpsertLink(ctx context.Context, jobID string, link *types.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.links[jobID]
	if !ok {
		byKey = make(map[string]*types.Link)
		m.links[jobID] = byKey
	}
	key := linkKey(link)
	if _, exists := byKey[key]; !exists {
		m.linkKeys[jobID] = append(m.linkKeys[jobID], key)
	}
	stored := *link
	byKey[key] = &stored
	return nil
}

func (m *MemoryStore) ListLinks(ctx context.Context, jobID string) ([]*types.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.linkKeys[jobID]
	links := make([]*types.Link, 0, len(keys))
	for _, key := range keys {
		copied := *m.links[jobID][key]
		links = append(links, &copied)
	}
	return links, nil
}

func (m *MemoryStore) JobSnapshot(ctx context.Context, jobID string) (*Snapshot, error) {
	job, err := m.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	pages, err := m.ListPages(ctx, jobID)
	if err != nil {
		return nil, err
	}
	links, err := m.ListLinks(ctx, jobID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{Job: *job}
	for _, page := range pages {
		snapshot.Pages = append(snapshot.Pages, *page)
	}
	for _, link := range links {
		snapshot.Links = append(snapshot.Links, *link)
	}
	return snapshot, nil
}
