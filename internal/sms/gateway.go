package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GatewayConfig configures an HTTP SMS gateway.
type GatewayConfig struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
	Sender   string `json:"sender,omitempty"`
}

// GatewayTransport sends messages through an HTTP JSON gateway. It is used
// on desktop, where there is no native SMS API.
type GatewayTransport struct {
	config     GatewayConfig
	httpClient *http.Client
}

// NewGatewayTransport creates a GatewayTransport. A nil client uses
// http.DefaultClient; cancellation comes from the caller's context.
func NewGatewayTransport(config GatewayConfig, client *http.Client) *GatewayTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &GatewayTransport{config: config, httpClient: client}
}

type gatewayRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// Send implements Transport.
func (g *GatewayTransport) Send(ctx context.Context, to, message string) error {
	jsonData, err := json.Marshal(gatewayRequest{To: to, Message: message, Sender: g.config.Sender})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.Token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Unavailable is the Transport used when no SMS channel is configured.
// Every send fails, so each attempt is still logged as failed.
type Unavailable struct{}

// Send implements Transport.
func (Unavailable) Send(context.Context, string, string) error {
	return fmt.Errorf("no sms transport configured")
}
