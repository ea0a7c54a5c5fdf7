package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultCatalogURL = "https://edgeupdates.microsoft.com/api/products"
	DefaultCDPURL     = "https://msedge.api.cdp.microsoft.com/api/v2/contents/Browser/namespaces/Default/names"
	DefaultFwlinkURL  = "https://go.microsoft.com/fwlink/?linkid="

	defaultTimeout = 30 * time.Second
)

// Config holds the backend endpoints.
type Config struct {
	CatalogURL string
	CDPURL     string
	FwlinkURL  string
	Timeout    time.Duration
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to the catalog API, the versioned file API and the legacy
// redirect service. The catalog response is fetched once per Client.
type Client struct {
	catalogURL string
	cdpURL     string
	fwlinkURL  string
	httpClient *http.Client
	products   *Cell[[]ProductInfo]
}

func NewClient(cfg Config) *Client {
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = DefaultCatalogURL
	}

	if cfg.CDPURL == "" {
		cfg.CDPURL = DefaultCDPURL
	}

	if cfg.FwlinkURL == "" {
		cfg.FwlinkURL = DefaultFwlinkURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		catalogURL: cfg.CatalogURL,
		cdpURL:     cfg.CDPURL,
		fwlinkURL:  cfg.FwlinkURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
			// Redirects are inspected, never followed.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	c.products = NewCell(c.FetchProducts)

	return c
}

// Products returns the catalog, fetching it on first use.
func (c *Client) Products(ctx context.Context) ([]ProductInfo, error) {
	return c.products.Get(ctx)
}

// FetchProducts downloads the catalog without consulting the cache.
func (c *Client) FetchProducts(ctx context.Context) ([]ProductInfo, error) {
	logger := logctx.LoggerFromContext(ctx).With("operation", "catalog")

	var products []ProductInfo
	if err := c.doJSON(ctx, "catalog", http.MethodGet, c.catalogURL, nil, &products); err != nil {
		return nil, err
	}

	logger.Debug("catalog fetched", "products", len(products))

	return products, nil
}

// GenerateDownloadInfo lists the files of an identity at a concrete version.
func (c *Client) GenerateDownloadInfo(ctx context.Context, id edge.Identity, version edge.Version) ([]DownloadInfo, error) {
	url := fmt.Sprintf("%s/%s/versions/%s/files?action=GenerateDownloadInfo&foregroundPriority=true", c.cdpURL, id, version)

	var files []DownloadInfo
	if err := c.doJSON(ctx, "generate_download_info", http.MethodPost, url, struct{}{}, &files); err != nil {
		return nil, err
	}

	return files, nil
}

// BatchUpdates asks for the current version of each identity.
func (c *Client) BatchUpdates(ctx context.Context, ids ...edge.Identity) ([]UpdateInfo, error) {
	reqs := make([]updateRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, updateRequest{Product: id.String()})
	}

	var updates []UpdateInfo
	if err := c.doJSON(ctx, "batch_updates", http.MethodPost, c.cdpURL+"?action=BatchUpdates", reqs, &updates); err != nil {
		return nil, err
	}

	return updates, nil
}

// VersionExists reports whether the versioned file API knows the version.
// A 404 means absent; any other non-2xx status is an error.
func (c *Client) VersionExists(ctx context.Context, id edge.Identity, version edge.Version) (bool, error) {
	url := fmt.Sprintf("%s/%s/versions/%s", c.cdpURL, id, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &edge.TransportError{Operation: "version_exists", URL: url, Err: err}
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, &edge.TransportError{Operation: "version_exists", URL: url, StatusCode: resp.StatusCode}
	}
}

// ResolveFwlink returns the redirect target of a legacy link id.
func (c *Client) ResolveFwlink(ctx context.Context, linkID int) (string, error) {
	url := c.fwlinkURL + strconv.Itoa(linkID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &edge.TransportError{Operation: "fwlink_redirect", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", &edge.TransportError{Operation: "fwlink_redirect", URL: url, StatusCode: resp.StatusCode}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &edge.TransportError{
			Operation:  "fwlink_redirect",
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("redirect without location"),
		}
	}

	return location, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, url string, in, out any) error {
	logger := logctx.LoggerFromContext(ctx).With("operation", op)

	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("request failed", "url", url, "err", err)

		return &edge.TransportError{Operation: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Error("unexpected status", "url", url, "status", resp.StatusCode, "body", string(b))

		return &edge.TransportError{Operation: op, URL: url, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return nil
}
