package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://testmapa.um.warszawa.pl/mapviewer/dataserver/DANE_WAWA"
	// DefaultQuery is appended verbatim after the layer parameter.
	DefaultQuery = "&bbox=7436182.666666665%2C5725277.733333332%2C7548484.533333331%2C5848687.866666665" +
		"&include_label_box=true&to_srid=2178&bbox_srid=2178&ssid=112_883293711573272583%0A&refresh=21310"
)

// FetcherOptions configures the map-server client.
type FetcherOptions struct {
	BaseURL           string
	Query             string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// HTTPFetcher downloads layer feature collections, throttled by a shared
// rate limiter.
type HTTPFetcher struct {
	client  *http.Client
	opts    FetcherOptions
	limiter *rate.Limiter
}

func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Query == "" {
		opts.Query = DefaultQuery
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "wastejobs-ingest/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// LayerURL builds the request URL for one layer.
func (f *HTTPFetcher) LayerURL(layer string) string {
	return f.opts.BaseURL + "?t=" + url.QueryEscape(layer) + f.opts.Query
}

func (f *HTTPFetcher) Fetch(ctx context.Context, layer string) (*FeatureCollection, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ingest: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.LayerURL(layer), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: build request for %s", layer)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: fetch %s", layer)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Errorf("ingest: fetch %s: status %d", layer, resp.StatusCode)
	}

	var fc FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", layer)
	}
	return &fc, nil
}
