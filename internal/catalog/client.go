// Package catalog implements the remote character catalog client.
//
// The remote API follows the Marvel developer portal conventions: every
// request carries ts, apikey and hash=md5(ts+privateKey+publicKey) query
// parameters, and responses wrap results in a data envelope with an
// attribution string.
package catalog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/gauravkale/ComicsLibrary/internal/models"
)

// Searcher is the catalog surface the coordinator consumes.
type Searcher interface {
	SearchCharacters(ctx context.Context, query string) (*SearchResult, error)
	FetchCharacter(ctx context.Context, externalID int) (*models.RemoteCharacter, error)
}

// SearchResult is one page of search hits plus the attribution line the
// catalog requires consumers to display.
type SearchResult struct {
	Items       []models.RemoteCharacter `json:"items"`
	Attribution string                   `json:"attribution,omitempty"`
}

// Options configures a Client.
type Options struct {
	BaseURL       string
	PublicKey     string
	PrivateKey    string
	Timeout       time.Duration
	RetryAttempts uint
	PageSize      int
	// RequestsPerSecond throttles outbound calls ahead of the remote
	// quota; zero disables the limiter.
	RequestsPerSecond float64
}

// Client talks to the remote catalog over HTTP.
type Client struct {
	httpClient       *resty.Client
	limiter          *rate.Limiter
	publicKey        string
	privateKey       string
	maxRetryAttempts uint
	pageSize         int
	now              func() time.Time
}

// NewClient creates a catalog client.
func NewClient(opts Options) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseURL)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient:       httpClient,
		limiter:          limiter,
		publicKey:        opts.PublicKey,
		privateKey:       opts.PrivateKey,
		maxRetryAttempts: opts.RetryAttempts,
		pageSize:         pageSize,
		now:              time.Now,
	}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// SearchCharacters returns one page of characters whose names start with query.
func (c *Client) SearchCharacters(ctx context.Context, query string) (*SearchResult, error) {
	var envelope charactersEnvelope
	err := c.getWithRetry(ctx, "/v1/public/characters", map[string]string{
		"nameStartsWith": query,
		"limit":          strconv.Itoa(c.pageSize),
	}, &envelope)
	if err != nil {
		return nil, err
	}

	items := make([]models.RemoteCharacter, 0, len(envelope.Data.Results))
	for _, r := range envelope.Data.Results {
		items = append(items, r.toRemote())
	}
	return &SearchResult{Items: items, Attribution: envelope.AttributionText}, nil
}

// FetchCharacter returns the single character with the given catalog id.
func (c *Client) FetchCharacter(ctx context.Context, externalID int) (*models.RemoteCharacter, error) {
	var envelope charactersEnvelope
	path := fmt.Sprintf("/v1/public/characters/%d", externalID)
	if err := c.getWithRetry(ctx, path, nil, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data.Results) == 0 {
		return nil, fmt.Errorf("catalog: character %d: not found", externalID)
	}
	rc := envelope.Data.Results[0].toRemote()
	return &rc, nil
}

func (c *Client) getWithRetry(ctx context.Context, path string, params map[string]string, out *charactersEnvelope) error {
	return retry.Do(
		func() error {
			err := c.get(ctx, path, params, out)
			if err != nil && !isRetryableError(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetryAttempts+1),
	)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out *charactersEnvelope) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("catalog: throttle: %w", err)
		}
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(c.authParams()).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("catalog: request %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("catalog: response error %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// authParams builds the ts/apikey/hash triple the catalog authenticates with.
func (c *Client) authParams() map[string]string {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	sum := md5.Sum([]byte(ts + c.privateKey + c.publicKey))
	return map[string]string{
		"ts":     ts,
		"apikey": c.publicKey,
		"hash":   hex.EncodeToString(sum[:]),
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "i/o timeout") {
		return true
	}
	// Server errors and rate limiting are worth another attempt.
	if strings.Contains(msg, "response error 5") || strings.Contains(msg, "response error 429") {
		return true
	}
	return false
}

// Wire envelope, trimmed to the fields the core consumes.

type charactersEnvelope struct {
	AttributionText string         `json:"attributionText"`
	Data            charactersData `json:"data"`
}

type charactersData struct {
	Results []characterResult `json:"results"`
}

type characterResult struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Thumbnail   thumbnail `json:"thumbnail"`
	Comics      comicList `json:"comics"`
}

type thumbnail struct {
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

type comicList struct {
	Items []comicSummary `json:"items"`
}

type comicSummary struct {
	Name string `json:"name"`
}

func (r characterResult) toRemote() models.RemoteCharacter {
	var comics []string
	for _, c := range r.Comics.Items {
		if c.Name != "" {
			comics = append(comics, c.Name)
		}
	}
	var thumbURL string
	if r.Thumbnail.Path != "" {
		thumbURL = r.Thumbnail.Path + "." + r.Thumbnail.Extension
	}
	return models.RemoteCharacter{
		ExternalID:   r.ID,
		Name:         r.Name,
		ThumbnailURL: thumbURL,
		Comics:       comics,
		Description:  r.Description,
	}
}
