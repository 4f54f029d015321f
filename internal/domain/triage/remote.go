package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultRemoteTimeout = 3 * time.Second
	maxRemoteBody        = 64 << 10
)

// RemoteOption configures a remote collaborator client.
type RemoteOption func(*remoteClient)

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *remoteClient) { r.httpClient = c }
}

func WithTimeout(d time.Duration) RemoteOption {
	return func(r *remoteClient) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

type remoteClient struct {
	url        string
	httpClient *http.Client
}

func newRemoteClient(url string, opts ...RemoteOption) remoteClient {
	r := remoteClient{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultRemoteTimeout},
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func (r remoteClient) post(ctx context.Context, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxRemoteBody))
		return fmt.Errorf("call %s: status %d", r.url, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteBody)).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", r.url, err)
	}
	return nil
}

type scoreRequest struct {
	Symptoms string `json:"symptoms"`
	Age      int    `json:"age"`
}

type scoreResponse struct {
	RiskScore *float64 `json:"risk_score"`
}

// RemoteScorer asks an external model service for a risk score.
type RemoteScorer struct {
	client remoteClient
}

func NewRemoteScorer(url string, opts ...RemoteOption) *RemoteScorer {
	return &RemoteScorer{client: newRemoteClient(url, opts...)}
}

func (s *RemoteScorer) Score(ctx context.Context, symptoms string, age int) (float64, error) {
	var resp scoreResponse
	if err := s.client.post(ctx, scoreRequest{Symptoms: symptoms, Age: age}, &resp); err != nil {
		return 0, err
	}
	if resp.RiskScore == nil {
		return 0, fmt.Errorf("response from %s has no risk_score", s.client.url)
	}
	return *resp.RiskScore, nil
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// RemoteSummarizer asks an external text generation service for the summary.
type RemoteSummarizer struct {
	client remoteClient
}

func NewRemoteSummarizer(url string, opts ...RemoteOption) *RemoteSummarizer {
	return &RemoteSummarizer{client: newRemoteClient(url, opts...)}
}

func (s *RemoteSummarizer) Summarize(ctx context.Context, in SummaryInput) (string, error) {
	var resp summaryResponse
	if err := s.client.post(ctx, in, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
