package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
	"github.com/gelatokw/scoops-backend/pkg/money"
)

const (
	responseBodyReadLimit int64 = 1024
)

var errAPITokenRequired = errors.New("commerce api token is required")

// Client wraps the upstream commerce platform proxy used for synced products
// and draft checkouts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured commerce base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the commerce client given a base URL and API token.
func NewClient(baseURL, apiToken string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(apiToken)
	if trimmedToken == "" {
		return nil, errAPITokenRequired
	}

	client := &Client{
		apiToken:   trimmedToken,
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		return nil, errors.New("commerce base url is required")
	}

	return client, nil
}

// Product is the normalized shape returned by the commerce platform.
type Product struct {
	ID          string
	Title       string
	Description string
	PriceFils   int64
	ImageRef    string
	Available   bool
}

// CheckoutLine is one priced line forwarded into a draft checkout.
type CheckoutLine struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest describes the draft checkout payload.
type CheckoutRequest struct {
	Email string         `json:"email"`
	Lines []CheckoutLine `json:"lines"`
	Note  string         `json:"note,omitempty"`
}

// CheckoutResult holds the identifiers of a created draft checkout.
type CheckoutResult struct {
	CheckoutID string
	WebURL     string
}

// ListProducts fetches the synced product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("products"), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build list products request")
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute list products request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "list products request failed")
	}

	var apiResp struct {
		Products []productPayload `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode list products response")
	}

	products := make([]Product, 0, len(apiResp.Products))
	for _, p := range apiResp.Products {
		mapped, err := p.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, mapped)
	}
	return products, nil
}

// GetProduct fetches a single product by its upstream id.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	reqURL := fmt.Sprintf("%s/products/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build get product request")
	}
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute get product request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "get product request failed")
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode get product response")
	}
	product, err := payload.toProduct()
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateCheckout forwards a draft checkout to the commerce platform.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "commerce client not configured")
	}
	if len(req.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout requires at least one line")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal checkout request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("checkouts"), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build checkout request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute checkout request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp, "checkout request failed")
	}

	var apiResp struct {
		Checkout struct {
			ID     string `json:"id"`
			WebURL string `json:"web_url"`
		} `json:"checkout"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout response")
	}

	return &CheckoutResult{
		CheckoutID: apiResp.Checkout.ID,
		WebURL:     apiResp.Checkout.WebURL,
	}, nil
}

type productPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	Available   bool   `json:"available"`
}

func (p productPayload) toProduct() (Product, error) {
	fils, err := money.ParseKWD(p.Price)
	if err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse product price")
	}
	return Product{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		PriceFils:   fils,
		ImageRef:    p.ImageURL,
		Available:   p.Available,
	}, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), path)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
}

func (c *Client) statusError(resp *http.Response, message string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		message,
	)
}
