// Package verifier wraps the external face verification microservice. The
// attendance recorder only cares about the pass/fail outcome and the
// confidence score; everything else about the biometric step is opaque.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// Result is the outcome of a verification attempt.
type Result struct {
	Confidence float64 `json:"confidence"`
	Passed     bool    `json:"passed"`
}

// Verifier is the collaborator contract consumed by the attendance recorder.
type Verifier interface {
	Verify(ctx context.Context, userID, imageURL string) (*Result, error)
}

// Client calls the face verification microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. Skip short-circuits every call with a mock pass so
// the rest of the stack works without the microservice running.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// Verify performs 1:1 verification of the image against the enrolled user.
func (c *Client) Verify(ctx context.Context, userID, imageURL string) (*Result, error) {
	if c.Skip {
		return &Result{
			Confidence: 0.92 + rand.Float64()*0.07,
			Passed:     true,
		}, nil
	}
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":   userID,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Verified   bool    `json:"verified"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Result{Confidence: out.Confidence, Passed: out.Verified}, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
