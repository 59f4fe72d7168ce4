package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/identity"
	"CinemaScanner/internal/ports"
)

const maxPayloadBytes = 64 << 20

// Options configures the two-step location retrieval.
type Options struct {
	BaseURL   string
	HomePath  string
	DataPath  string
	Timeout   time.Duration
	Transport http.RoundTripper
	// Limiter, when set, is waited on before every request.
	Limiter *rate.Limiter
}

// LocationFetcher visits a location's homepage to establish the session and
// then downloads the quick-book JSON payload for that location.
type LocationFetcher struct {
	baseURL   string
	homePath  string
	dataPath  string
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
	ids       identity.Provider
}

var _ ports.LocationFetcher = (*LocationFetcher)(nil)

// New wires the fetcher; a nil provider falls back to a static identity.
func New(opts Options, ids identity.Provider) (*LocationFetcher, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", base, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if ids == nil {
		ids = identity.NewStatic(base, "")
	}
	return &LocationFetcher{
		baseURL:   base,
		homePath:  "/" + strings.Trim(opts.HomePath, "/"),
		dataPath:  "/" + strings.TrimLeft(opts.DataPath, "/"),
		timeout:   opts.Timeout,
		transport: opts.Transport,
		limiter:   opts.Limiter,
		ids:       ids,
	}, nil
}

// Fetch returns the raw JSON payload for slug. Failures wrap
// domain.ErrTransport or domain.ErrParse.
func (f *LocationFetcher) Fetch(ctx context.Context, slug string) ([]byte, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar, Timeout: f.timeout, Transport: f.transport}
	id := f.ids.Next()

	homeURL := f.baseURL + f.homePath + "/" + url.PathEscape(slug)
	home, err := f.get(ctx, client, id, homeURL)
	if err != nil {
		return nil, fmt.Errorf("homepage %s: %w", slug, err)
	}
	if err := checkHomepage(home); err != nil {
		return nil, fmt.Errorf("homepage %s: %w", slug, err)
	}

	body, err := f.get(ctx, client, id, f.baseURL+f.dataPath)
	if err != nil {
		return nil, fmt.Errorf("payload %s: %w", slug, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("payload %s: %w: body is not valid json", slug, domain.ErrParse)
	}
	return body, nil
}

func (f *LocationFetcher) get(ctx context.Context, client *http.Client, id identity.Identity, target string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrTransport, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	id.Apply(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned %s", domain.ErrTransport, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}
	return body, nil
}

// checkHomepage rejects bot-challenge interstitials served with a 200.
func checkHomepage(page []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("%w: parse homepage: %v", domain.ErrParse, err)
	}

	if doc.Find("#challenge-form, #challenge-running, form#challenge-form").Length() > 0 {
		return fmt.Errorf("%w: challenge page served", domain.ErrTransport)
	}
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if strings.HasPrefix(title, "just a moment") || strings.Contains(title, "attention required") {
		return fmt.Errorf("%w: challenge page served", domain.ErrTransport)
	}
	return nil
}
