// Package probes holds the built-in job handlers: the deal and retrieval
// probes plus the global maintenance jobs.
package probes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/checkernet/probed/internal/core"
	"github.com/checkernet/probed/internal/domain"
)

// maxProbeResponseBytes bounds how much of a gateway response is read; probe
// verdicts are small JSON documents.
const maxProbeResponseBytes = 4 * 1024

// GatewayOptions configures the HTTP probe handlers.
type GatewayOptions struct {
	// BaseURL is the provider gateway root, e.g. "http://gateway:9000".
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

func (o *GatewayOptions) sanitize() error {
	if o.BaseURL == "" {
		return errors.New("gateway base url is required")
	}
	if _, err := url.Parse(o.BaseURL); err != nil {
		return fmt.Errorf("gateway base url: %w", err)
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return nil
}

// DealHandler asks the gateway to run one storage (deal) probe against a
// provider. The request carries the job's context, so the per-job-type
// timeout cancels a slow gateway call.
type DealHandler struct {
	opts GatewayOptions
}

var _ core.Handler = (*DealHandler)(nil)

// NewDealHandler creates a deal probe handler.
func NewDealHandler(opts GatewayOptions) (*DealHandler, error) {
	if err := opts.sanitize(); err != nil {
		return nil, err
	}
	return &DealHandler{opts: opts}, nil
}

// Type implements core.Handler.
func (h *DealHandler) Type() domain.JobType { return domain.JobTypeDeal }

// Run implements core.Handler.
func (h *DealHandler) Run(ctx context.Context, job core.Job) error {
	return runProbe(ctx, h.opts, "deal", job)
}

// RetrievalHandler asks the gateway to run one retrieval probe against a
// provider.
type RetrievalHandler struct {
	opts GatewayOptions
}

var _ core.Handler = (*RetrievalHandler)(nil)

// NewRetrievalHandler creates a retrieval probe handler.
func NewRetrievalHandler(opts GatewayOptions) (*RetrievalHandler, error) {
	if err := opts.sanitize(); err != nil {
		return nil, err
	}
	return &RetrievalHandler{opts: opts}, nil
}

// Type implements core.Handler.
func (h *RetrievalHandler) Type() domain.JobType { return domain.JobTypeRetrieval }

// Run implements core.Handler.
func (h *RetrievalHandler) Run(ctx context.Context, job core.Job) error {
	return runProbe(ctx, h.opts, "retrieval", job)
}

// probeVerdict is the gateway's answer for one probe run.
type probeVerdict struct {
	Ok     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func runProbe(ctx context.Context, opts GatewayOptions, kind string, job core.Job) error {
	var payload domain.ProbePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", kind, err)
	}
	if payload.SPAddress == "" {
		return fmt.Errorf("%s payload has no provider address", kind)
	}

	body, err := json.Marshal(map[string]string{"sp_address": payload.SPAddress})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", kind, err)
	}

	endpoint := opts.BaseURL + "/probe/" + kind
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s probe for %s: %w", kind, payload.SPAddress, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s probe response: %w", kind, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s probe for %s: unexpected status %d", kind, payload.SPAddress, resp.StatusCode)
	}

	var verdict probeVerdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return fmt.Errorf("decode %s probe verdict: %w", kind, err)
	}
	if !verdict.Ok {
		return fmt.Errorf("%s probe for %s failed: %s", kind, payload.SPAddress, verdict.Detail)
	}

	opts.Logger.DebugContext(ctx, "probe completed",
		"kind", kind, "sp_address", payload.SPAddress, "job_id", job.ID)
	return nil
}
