package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/gacha/internal/models"
)

// ErrRemote is returned when a gacha server answers with success=false
var ErrRemote = errors.New("remote backend failure")

// CatalogResponse is the JSON envelope of /api/getGachaData
type CatalogResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*models.CatalogPayload
}

// AssetResponse is the JSON envelope of /api/getItemAsset
type AssetResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*models.AssetPayload
}

// Client talks to the bridge endpoints of a gacha server
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchCatalog implements bridge.Backend
func (c *Client) FetchCatalog(ctx context.Context, folder string) (models.CatalogPayload, error) {
	q := url.Values{}
	q.Set("folder", folder)

	var resp CatalogResponse
	if err := c.get(ctx, "/api/getGachaData", q, &resp); err != nil {
		return models.CatalogPayload{}, err
	}
	if !resp.Success {
		return models.CatalogPayload{}, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	if resp.CatalogPayload == nil {
		return models.CatalogPayload{}, fmt.Errorf("%w: empty catalog response", ErrRemote)
	}
	return *resp.CatalogPayload, nil
}

// FetchAsset implements bridge.Backend
func (c *Client) FetchAsset(ctx context.Context, folder string, ref models.AssetRef) (models.AssetPayload, error) {
	q := url.Values{}
	q.Set("folder", folder)
	q.Set("image", ref.Image)
	q.Set("description", ref.Description)

	var resp AssetResponse
	if err := c.get(ctx, "/api/getItemAsset", q, &resp); err != nil {
		return models.AssetPayload{}, err
	}
	if !resp.Success {
		return models.AssetPayload{}, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	if resp.AssetPayload == nil {
		return models.AssetPayload{}, fmt.Errorf("%w: empty asset response", ErrRemote)
	}
	return *resp.AssetPayload, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	reqURL := c.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
