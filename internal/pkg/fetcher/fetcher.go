package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// Failure categories recorded on a page when a fetch does not produce a
// response. Everything else (4xx, 5xx) is a valid Result, not an error.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindConnection   ErrorKind = "connection"
	KindTLS          ErrorKind = "tls"
	KindTooLarge     ErrorKind = "tooLarge"
	KindRedirectLoop ErrorKind = "redirectLoop"
)

// FetchError is the typed failure returned for unreachable or oversized pages.
type FetchError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

var errTooManyRedirects = errors.New("too many redirects")

// Result of a single GET.
type Result struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	Elapsed     time.Duration
}

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 2 * 1024 * 1024 // 2 MiB
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	MaxRedirects int
}

// Fetcher issues single GET requests with a hard deadline, a capped body
// size and a bounded redirect chain.
type Fetcher struct {
	client *http.Client
	opts   Options
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: opts.Timeout,
			IdleConnTimeout:       30 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= opts.MaxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
	return &Fetcher{client: client, opts: opts}
}

// Fetch retrieves one URL. The timeout is a context deadline covering
// connect, headers and body, not a soft hint on the client.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindConnection, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classify(ctx, err), URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	// Read one byte past the cap so truncation is detectable.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	elapsed := time.Since(start)
	if err != nil {
		return nil, &FetchError{Kind: classify(ctx, err), URL: rawURL, Err: err}
	}
	if int64(len(raw)) > f.opts.MaxBodyBytes {
		return nil, &FetchError{
			Kind: KindTooLarge,
			URL:  rawURL,
			Err:  fmt.Errorf("body exceeds %d bytes", f.opts.MaxBodyBytes),
		}
	}

	contentType := resp.Header.Get("Content-Type")

	return &Result{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        decodeToUTF8(raw, contentType),
		ContentType: contentType,
		Elapsed:     elapsed,
	}, nil
}

// Pages served in legacy encodings are transcoded before parsing; on any
// conversion problem the raw bytes are used as-is.
func decodeToUTF8(raw []byte, contentType string) []byte {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return raw
	}
	return decoded
}

func classify(ctx context.Context, err error) ErrorKind {
	if errors.Is(err, errTooManyRedirects) {
		return KindRedirectLoop
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return KindTLS
	}
	return KindConnection
}
