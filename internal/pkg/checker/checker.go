package checker

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

const (
	DefaultMaxLinks = 50
	DefaultWorkers  = 5
	DefaultTimeout  = 5 * time.Second
	DefaultDelay    = 100 * time.Millisecond
)

type Options struct {
	MaxLinks  int           // total links probed per job
	Workers   int           // pool size, bounds outbound concurrency
	Timeout   time.Duration // per-request deadline
	Delay     time.Duration // pause between requests on one worker
	UserAgent string
}

// Checker probes discovered links for reachability with a bounded worker
// pool. Results are written onto the link records themselves, so they stay
// attributed no matter which worker finished first.
type Checker struct {
	client *http.Client
	opts   Options
	log    *logrus.Entry
}

func New(opts Options, log *logrus.Logger) *Checker {
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = DefaultMaxLinks
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Checker{
		client: &http.Client{},
		opts:   opts,
		log:    log.WithField("component", "checker"),
	}
}

// Check probes the first MaxLinks links and records status codes in place.
// Unreachable targets keep a nil status and are flagged broken; links past
// the cap are left untouched. Cancelling the context stops all workers as
// a group, leaving already-recorded results intact.
func (c *Checker) Check(ctx context.Context, links []*types.Link) {
	capped := links
	if len(capped) > c.opts.MaxLinks {
		capped = capped[:c.opts.MaxLinks]
	}
	if len(capped) == 0 {
		return
	}

	jobs := make(chan *types.Link)
	var wg sync.WaitGroup
	workers := c.opts.Workers
	if workers > len(capped) {
		workers = len(capped)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, jobs)
		}()
	}

	for _, link := range capped {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- link:
		}
	}
	close(jobs)
	wg.Wait()
}

func (c *Checker) worker(ctx context.Context, jobs <-chan *types.Link) {
	// Each worker paces its own requests so target hosts see at most one
	// probe per delay interval per worker.
	limiter := rate.NewLimiter(rate.Every(c.opts.Delay), 1)
	for link := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		status, err := c.probe(ctx, link.Target)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.WithField("url", link.Target).WithError(err).Debug("link unreachable")
			link.StatusCode = nil
			link.Broken = true
			continue
		}
		code := status
		link.StatusCode = &code
		link.Broken = status >= 400
	}
}

// probe sends a HEAD request and retries as GET when the target rejects
// the method. The GET body is discarded unread past the status line.
func (c *Checker) probe(ctx context.Context, target string) (int, error) {
	status, err := c.request(ctx, http.MethodHead, target)
	if err != nil {
		return 0, err
	}
	if status == http.StatusMethodNotAllowed {
		return c.request(ctx, http.MethodGet, target)
	}
	return status, nil
}

func (c *Checker) request(ctx context.Context, method, target string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	resp.Body.Close()
	return resp.StatusCode, nil
}
