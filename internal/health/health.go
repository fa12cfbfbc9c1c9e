// internal/health/health.go
// Gateway health probe for the /health command and startup diagnostics.
// Asks the gateway which providers have credentials configured.
package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Status describes one provider's readiness as reported by the gateway.
type Status struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Detail     string `json:"detail,omitempty"`
}

// Report is the result of one health check.
type Report struct {
	Reachable bool
	Statuses  []Status
	Err       error
}

// Client queries the gateway health endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
}

// NewClient creates a health client against the given gateway base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Second, // Short timeout, this is a diagnostic
		},
		enabled: true,
	}
}

// SetEnabled enables or disables health checking
func (c *Client) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Enabled reports whether health checking is active
func (c *Client) Enabled() bool {
	return c.enabled
}

type wireHealth struct {
	Providers []struct {
		Provider   string `json:"provider"`
		Configured bool   `json:"configured"`
		Detail     string `json:"detail"`
	} `json:"providers"`
}

// Check queries the gateway. An unreachable gateway is not an error
// condition for the caller, it comes back as Reachable=false with the
// underlying cause in Err.
func (c *Client) Check(ctx context.Context) Report {
	if !c.enabled {
		return Report{Reachable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return Report{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Report{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{Err: nil, Reachable: false}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Report{Err: err}
	}

	var wire wireHealth
	if err := json.Unmarshal(body, &wire); err != nil {
		return Report{Reachable: true, Err: err}
	}

	report := Report{Reachable: true}
	for _, p := range wire.Providers {
		report.Statuses = append(report.Statuses, Status{
			Provider:   p.Provider,
			Configured: p.Configured,
			Detail:     p.Detail,
		})
	}
	return report
}
