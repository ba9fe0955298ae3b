package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/simao-ai/rural-platform/internal/conversation"
	"github.com/simao-ai/rural-platform/pkg/logging"
)

var gatewayTracer = otel.Tracer("messaging.gateway")

// GatewaySender pushes outbound text back to the WhatsApp gateway's
// callback endpoint. The gateway owns the channel session, this service
// only decides what to say.
type GatewaySender struct {
	url        string
	token      string
	httpClient *http.Client
	log        *logging.Logger
}

var _ conversation.Messenger = (*GatewaySender)(nil)

func NewGatewaySender(url, token string, log *logging.Logger) *GatewaySender {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if log == nil {
		log = logging.Default()
	}
	return &GatewaySender{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

func (s *GatewaySender) Send(ctx context.Context, contactID, text string) error {
	if strings.TrimSpace(contactID) == "" {
		return errors.New("messaging: contact id required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("messaging: text required")
	}

	ctx, span := gatewayTracer.Start(ctx, "messaging.gateway.send")
	defer span.End()

	payload, err := json.Marshal(map[string]string{
		"contact_id": contactID,
		"text":       text,
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("messaging: build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: gateway send to %s: %w", contactID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("messaging: gateway send failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	s.log.Info("gateway message sent", "contact_id", contactID)
	return nil
}
