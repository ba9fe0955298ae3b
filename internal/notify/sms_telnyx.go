package notify

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

	"github.com/simao-ai/rural-platform/pkg/logging"
)

var telnyxTracer = otel.Tracer("notify.telnyx")

const telnyxMessagesURL = "https://api.telnyx.com/v2/messages"

// TelnyxSMSSender posts SMS alerts through Telnyx's V2 API. Transient
// failures are retried up to three times.
type TelnyxSMSSender struct {
	apiKey             string
	from               string
	messagingProfileID string
	url                string
	httpClient         *http.Client
	log                *logging.Logger
}

var _ SMSSender = (*TelnyxSMSSender)(nil)

// NewTelnyxSMSSender returns nil when no API key is configured so callers
// can skip the SMS channel entirely.
func NewTelnyxSMSSender(apiKey, from, messagingProfileID string, log *logging.Logger) *TelnyxSMSSender {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if log == nil {
		log = logging.Default()
	}
	return &TelnyxSMSSender{
		apiKey:             apiKey,
		from:               from,
		messagingProfileID: messagingProfileID,
		url:                telnyxMessagesURL,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		log:                log,
	}
}

func (s *TelnyxSMSSender) SendSMS(ctx context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("notify: sms recipient required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("notify: sms body required")
	}

	ctx, span := telnyxTracer.Start(ctx, "notify.telnyx.send")
	defer span.End()

	payload := map[string]any{
		"from": s.from,
		"to":   to,
		"text": body,
	}
	if s.messagingProfileID != "" {
		payload["messaging_profile_id"] = s.messagingProfileID
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal telnyx payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("notify: build telnyx request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.log.Info("telnyx sms sent", "to", to)
				return nil
			}
			lastErr = fmt.Errorf("telnyx send failed: status %d, body: %s", resp.StatusCode, string(respBody))
			// Client errors will not heal on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
		}

		if attempt < 3 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("notify: telnyx sms to %s: %w", to, lastErr)
}
