// Package catalog talks to the remote product catalog that the audit treats
// as ground truth.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rogerio-castellano/inventory-audit/internal/models"
)

const maxBodyBytes = 8 << 20

var (
	// ErrUnexpectedShape is returned when the listing is neither a JSON
	// array nor an object with a "products" array.
	ErrUnexpectedShape = errors.New("unexpected catalog response shape")
	// ErrPriceMissing is returned when a product lookup has no price field.
	ErrPriceMissing = errors.New("price field missing from catalog response")
)

// StatusError reports a response whose status code was not accepted.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

type Options struct {
	BaseURL   string
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
	RPS       float64 // 0 disables rate limiting
	HTTP      *http.Client
}

type Client struct {
	baseURL string
	headers http.Header
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	return &Client{
		baseURL: opts.BaseURL,
		headers: headers,
		http:    hc,
		limiter: limiter,
	}
}

// FetchAll retrieves the full product listing.
func (c *Client) FetchAll(ctx context.Context) ([]models.Product, error) {
	body, status, err := c.get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{URL: c.baseURL, StatusCode: status}
	}
	return decodeListing(body)
}

// FetchPrice retrieves the current price of a single product.
func (c *Client) FetchPrice(ctx context.Context, id int) (float64, error) {
	url := c.baseURL + "/" + strconv.Itoa(id)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, &StatusError{URL: url, StatusCode: status}
	}

	var item struct {
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal(body, &item); err != nil {
		return 0, fmt.Errorf("decode product %d: %w", id, err)
	}
	if item.Price == nil {
		return 0, fmt.Errorf("product %d: %w", id, ErrPriceMissing)
	}
	return *item.Price, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

func decodeListing(body []byte) ([]models.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedShape
	}

	var products []models.Product
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
	case '{':
		var wrapped struct {
			Products *[]models.Product `json:"products"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		if wrapped.Products == nil {
			return nil, fmt.Errorf("%w: no products field", ErrUnexpectedShape)
		}
		products = *wrapped.Products
	default:
		return nil, ErrUnexpectedShape
	}
	return products, nil
}
