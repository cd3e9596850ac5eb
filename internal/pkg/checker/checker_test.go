package checker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mugulhan/smart-crawler/internal/pkg/types"
)

func makeLinks(base string, n int) []*types.Link {
	links := make([]*types.Link, n)
	for i := range links {
		links[i] = &types.Link{
			Source: base,
			Target: fmt.Sprintf("%s/p%d", base, i),
			Type:   types.LinkInternal,
		}
	}
	return links
}

func TestCheckRecordsStatusCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/p1") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	links := makeLinks(server.URL, 3)
	c := New(Options{Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	require.NotNil(t, links[0].StatusCode)
	assert.Equal(t, 200, *links[0].StatusCode)
	assert.False(t, links[0].Broken)

	require.NotNil(t, links[1].StatusCode)
	assert.Equal(t, 404, *links[1].StatusCode)
	assert.True(t, links[1].Broken, "4xx counts as broken")
}

func TestCheckHeadFallsBackToGet(t *testing.T) {
	var sawGet atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	links := makeLinks(server.URL, 1)
	c := New(Options{Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	assert.True(t, sawGet.Load(), "expected a GET retry after 405")
	require.NotNil(t, links[0].StatusCode)
	assert.Equal(t, 200, *links[0].StatusCode)
}

func TestCheckUnreachableLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	links := makeLinks(server.URL, 1)
	c := New(Options{Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	assert.Nil(t, links[0].StatusCode)
	assert.True(t, links[0].Broken)
}

func TestCheckHonorsCap(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	links := makeLinks(server.URL, 20)
	c := New(Options{MaxLinks: 5, Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	assert.Equal(t, int32(5), hits.Load(), "exactly min(N, cap) links checked")
	for _, link := range links[5:] {
		assert.Nil(t, link.StatusCode, "links beyond the cap stay unchecked")
		assert.False(t, link.Broken)
	}
}

func TestCheckBoundsConcurrency(t *testing.T) {
	const workers = 3
	var inflight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := inflight.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
	}))
	defer server.Close()

	links := makeLinks(server.URL, 12)
	c := New(Options{Workers: workers, MaxLinks: 12, Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	assert.LessOrEqual(t, peak.Load(), int32(workers),
		"no more than the pool size may be in flight")
	for _, link := range links {
		assert.NotNil(t, link.StatusCode)
	}
}

func TestCheckAttributionByIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "bad") {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	links := []*types.Link{
		{Target: server.URL + "/ok"},
		{Target: server.URL + "/bad"},
		{Target: server.URL + "/ok2"},
	}
	c := New(Options{Workers: 3, Delay: time.Millisecond}, nil)
	c.Check(context.Background(), links)

	require.NotNil(t, links[1].StatusCode)
	assert.Equal(t, 500, *links[1].StatusCode)
	assert.True(t, links[1].Broken)
	assert.False(t, links[0].Broken)
	assert.False(t, links[2].Broken)
}

func TestCheckGroupCancellation(t *testing.T) {
	var mu sync.Mutex
	started := 0
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		started++
		mu.Unlock()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	links := makeLinks(server.URL, 10)
	c := New(Options{Workers: 2, Delay: time.Millisecond, Timeout: time.Second}, nil)

	done := make(chan struct{})
	go func() {
		c.Check(ctx, links)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("checker did not stop after cancellation")
	}

	mu.Lock()
	assert.Less(t, started, 10, "cancellation must stop remaining probes")
	mu.Unlock()
}
