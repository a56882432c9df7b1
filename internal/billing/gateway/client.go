// Package gateway implements the HTTP client for the external payment
// processor.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akadahq/akada/internal/billing/domain"
	"github.com/akadahq/akada/internal/config"
	obsmetrics "github.com/akadahq/akada/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	log        *zap.Logger
	obsMetrics *obsmetrics.Metrics
}

func NewClient(p Params) domain.Gateway {
	return &Client{
		baseURL:   strings.TrimRight(p.Cfg.GatewayBaseURL, "/"),
		secretKey: p.Cfg.GatewaySecretKey,
		httpClient: &http.Client{
			Timeout: p.Cfg.GatewayTimeout,
		},
		log:        p.Log.Named("billing.gateway"),
		obsMetrics: p.ObsMetrics,
	}
}

type initializePayload struct {
	Reference string         `json:"reference"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Metadata  map[string]any `json:"metadata"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
		CustomerCode     string `json:"customer_code"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference       string     `json:"reference"`
		Status          string     `json:"status"`
		GatewayResponse string     `json:"gateway_response"`
		PaidAt          *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (c *Client) Initialize(ctx context.Context, req domain.GatewayInitialize) (*domain.GatewayInitializeResult, error) {
	payload := initializePayload{
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Metadata:  map[string]any{"tenant_id": req.TenantID.String()},
	}

	var resp initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload, &resp, "initialize"); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("gateway declined initialize: %s", resp.Message)
	}

	return &domain.GatewayInitializeResult{
		AuthorizationURL: resp.Data.AuthorizationURL,
		Reference:        resp.Data.Reference,
		CustomerRef:      resp.Data.CustomerCode,
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*domain.GatewayVerifyResult, error) {
	var resp verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &resp, "verify"); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("gateway declined verify: %s", resp.Message)
	}

	return &domain.GatewayVerifyResult{
		Status:              resp.Data.Status,
		GatewayResponseCode: resp.Data.GatewayResponse,
		PaidAt:              resp.Data.PaidAt,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, "error")
		c.log.Warn("gateway request failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.observe(operation, "error")
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observe(operation, "error")
		c.log.Warn("gateway returned non-2xx",
			zap.String("operation", operation),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.observe(operation, "error")
		return fmt.Errorf("decode gateway response: %w", err)
	}

	c.observe(operation, "ok")
	return nil
}

func (c *Client) observe(operation, outcome string) {
	if c.obsMetrics != nil {
		c.obsMetrics.GatewayRequests.WithLabelValues(operation, outcome).Inc()
	}
}
