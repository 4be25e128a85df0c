package apper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const requestIDHeader = "X-Request-ID"

type HTTPConfig struct {
	BaseURL   string
	ProjectID string
	// PublicKey is sent as a static bearer token unless client credentials are set.
	PublicKey    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// HTTPClient talks to the remote record API.
type HTTPClient struct {
	baseURL   string
	projectID string
	http      *http.Client
	logger    *zap.Logger
}

// NewHTTPClient builds the client. ctx is only used by oauth2 to pick up a base
// *http.Client (oauth2.HTTPClient) and to fetch tokens.
func NewHTTPClient(ctx context.Context, cfg HTTPConfig, logger *zap.Logger) *HTTPClient {
	var hc *http.Client
	switch {
	case cfg.ClientID != "" && cfg.TokenURL != "":
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		hc = cc.Client(ctx)
	case cfg.PublicKey != "":
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.PublicKey,
			TokenType:   "Bearer",
		}))
	default:
		hc = &http.Client{}
	}
	hc.Timeout = cfg.Timeout

	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
		http:      hc,
		logger:    logger,
	}
}

func (c *HTTPClient) recordsURL(entity string, suffix ...string) string {
	parts := []string{c.baseURL, "api/v1", url.PathEscape(c.projectID), "tables", url.PathEscape(entity), "records"}
	return strings.Join(append(parts, suffix...), "/")
}

func (c *HTTPClient) FetchRecords(ctx context.Context, entity string, params FetchParams) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(entity, "fetch"), params)
}

func (c *HTTPClient) GetRecordByID(ctx context.Context, entity string, id int64, params FetchParams) (*Envelope, error) {
	u := c.recordsURL(entity, strconv.FormatInt(id, 10))
	if names := params.Names(); len(names) > 0 {
		u += "?" + url.Values{"fields": {strings.Join(names, ",")}}.Encode()
	}
	return c.do(ctx, http.MethodGet, u, nil)
}

func (c *HTTPClient) CreateRecord(ctx context.Context, entity string, params WriteParams) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(entity), params)
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, entity string, params WriteParams) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, c.recordsURL(entity), params)
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, c.recordsURL(entity), params)
}

func (c *HTTPClient) do(ctx context.Context, method, u string, body any) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.Must(uuid.NewV7()).String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("remote request failed",
			zap.String("method", method),
			zap.String("url", u),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		zap.String("method", method),
		zap.String("url", u),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response (request %s): %w", requestID, err)
	}

	var env Envelope
	if err := decodeJSON(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%s %s: unexpected status %d (request %s)", method, u, resp.StatusCode, requestID)
		}
		return nil, fmt.Errorf("decode envelope (request %s): %w", requestID, err)
	}
	return &env, nil
}
