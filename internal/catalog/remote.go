package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mattsblocklist/countrypicker/internal/countries"
)

// HTTPClient is an interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RemoteSource fetches the image-flag catalog over HTTP. Exactly one request
// is made per Load; there are no retries.
type RemoteSource struct {
	url        string
	httpClient HTTPClient
}

// NewRemoteSource creates a remote source. A nil client gets a 30s timeout.
func NewRemoteSource(url string, client HTTPClient) *RemoteSource {
	if url == "" {
		url = DefaultRemoteURL
	}
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &RemoteSource{
		url:        url,
		httpClient: client,
	}
}

// Name returns the source name.
func (s *RemoteSource) Name() string {
	return "remote:" + s.url
}

// URL returns the catalog URL.
func (s *RemoteSource) URL() string {
	return s.url
}

// Variant returns countries.Image.
func (s *RemoteSource) Variant() countries.FlagVariant {
	return countries.Image
}

// Load fetches and parses the catalog document.
func (s *RemoteSource) Load(ctx context.Context) (*countries.Catalog, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return countries.ParseCatalog(countries.Image, body)
}

func (s *RemoteSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "countrypicker/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
