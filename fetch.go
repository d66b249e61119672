package mediapick

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// fetchLimit caps a source response body. Slightly above the quality
// filter's maximum so oversized images are rejected with a reason instead
// of silently truncated.
const fetchLimit = maxImageBytes + 64*1024

// HTTPFetcher is the default Fetcher: a GET against the source's endpoint
// template with {query} and {year} substituted. Sources needing richer
// protocols (API pagination, auth) supply their own Fetcher.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// Fetch downloads one image from the source. Returns (nil, error) on any
// transport or content failure; the engine treats both as an absent
// candidate.
func (f *HTTPFetcher) Fetch(ctx context.Context, source Source, searchTerm string, year int) (*FetchResult, error) {
	if source.Endpoint == "" {
		return nil, fmt.Errorf("source %s: no endpoint configured", source.Name)
	}

	endpoint := strings.ReplaceAll(source.Endpoint, "{query}", url.QueryEscape(searchTerm))
	endpoint = strings.ReplaceAll(endpoint, "{year}", strconv.Itoa(year))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: status %d", source.Name, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// Strip MIME parameters: "image/jpeg; charset=utf-8" → "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("source %s: content type %q", source.Name, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, fetchLimit))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("source %s: empty body", source.Name)
	}

	return &FetchResult{
		Data:  data,
		Title: resp.Header.Get("X-Image-Title"),
		URL:   endpoint,
		Date:  resp.Header.Get("Last-Modified"),
	}, nil
}
