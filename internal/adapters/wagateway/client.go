package wagateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ramadhanas/kaskelas/internal/adapters/ohttp"
	"github.com/ramadhanas/kaskelas/internal/domain"
)

// Client talks to the WhatsApp messaging gateway. A transport problem is
// returned as an error; a decoded success=false reply is returned as a
// non-success outcome. The dispatcher treats both the same way.
type Client struct {
	baseURL    string
	token      string
	sendDelay  int
	httpClient *ohttp.Client
}

type sendRequest struct {
	MessageType string `json:"messageType"`
	To          string `json:"to"`
	Body        string `json:"body"`
	Delay       int    `json:"delay"`
}

type sendResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewClient(baseURL, token string, sendDelaySeconds int, httpClient *ohttp.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		sendDelay:  sendDelaySeconds,
		httpClient: httpClient,
	}
}

func (c *Client) Send(ctx context.Context, destination, body string) (domain.GatewayOutcome, error) {
	payload, err := json.Marshal(sendRequest{
		MessageType: "text",
		To:          NormalizePhone(destination),
		Body:        body,
		Delay:       c.sendDelay,
	})
	if err != nil {
		return domain.GatewayOutcome{}, fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return domain.GatewayOutcome{}, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GatewayOutcome{}, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.GatewayOutcome{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return domain.GatewayOutcome{}, fmt.Errorf("decode gateway response: %w", err)
	}

	return domain.GatewayOutcome{Success: sr.Success, Message: sr.Message}, nil
}
