package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const graphAPIBase = "https://graph.facebook.com"

// WhatsAppSender delivers replies through the WhatsApp Cloud API.
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	apiVersion    string
	baseURL       string
	httpClient    *http.Client
}

func NewWhatsAppSender(accessToken, phoneNumberID, apiVersion string) *WhatsAppSender {
	return &WhatsAppSender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		apiVersion:    apiVersion,
		baseURL:       graphAPIBase,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendText sends a plain text message to a phone number in international
// format without the leading plus.
func (s *WhatsAppSender) SendText(ctx context.Context, to, text string) error {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": text},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.apiVersion, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("whatsapp send rejected", "status", resp.StatusCode, "body", string(raw))
		return fmt.Errorf("whatsapp send: status %d", resp.StatusCode)
	}
	return nil
}

// WebhookPayload is the inbound webhook envelope from the Cloud API.
// Only text message fields are mapped; other message types are skipped
// upstream.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string      `json:"field"`
			Value ChangeValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []InboundMessage `json:"messages"`
	Statuses []json.RawMessage `json:"statuses"`
}

type InboundMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// TextMessage extracts the first inbound text message and the sender's
// profile name. ok is false for status-only callbacks and non-text
// message types.
func (p *WebhookPayload) TextMessage() (msg InboundMessage, name string, ok bool) {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) == 0 {
				continue
			}
			m := change.Value.Messages[0]
			if m.Type != "text" {
				return InboundMessage{}, "", false
			}
			if len(change.Value.Contacts) > 0 {
				name = change.Value.Contacts[0].Profile.Name
			}
			return m, name, true
		}
	}
	return InboundMessage{}, "", false
}
