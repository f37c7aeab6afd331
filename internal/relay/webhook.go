package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookTransport posts an AdaptiveCard message to a chat-ops webhook
// (Teams-style incoming webhook).
type WebhookTransport struct {
	url    string
	client *http.Client
}

// NewWebhookTransport builds the primary webhook transport.
func NewWebhookTransport(url string) *WebhookTransport {
	return &WebhookTransport{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WebhookTransport) Name() string { return "webhook" }

func (t *WebhookTransport) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(buildCard(payload))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// buildCard renders the AdaptiveCard document: header, fact set, body text,
// attachment blocks, and the quick actions minus any excluded ones.
func buildCard(p Payload) map[string]any {
	facts := []map[string]any{
		{"title": "👤 Creado por:", "value": p.Creator},
		{"title": "🚨 Prioridad:", "value": strings.ToUpper(p.Priority)},
		{"title": "🆔 ID Ticket:", "value": p.TicketCode},
	}

	body := []any{
		map[string]any{"type": "TextBlock", "text": p.Subject, "weight": "Bolder", "size": "Large", "wrap": true},
		map[string]any{"type": "TextBlock", "text": p.Title, "isSubtle": true, "spacing": "None", "wrap": true},
		map[string]any{"type": "FactSet", "facts": facts, "separator": true, "spacing": "Medium"},
		map[string]any{"type": "TextBlock", "text": "**Mensaje:**\n\n" + p.Body, "wrap": true, "spacing": "Large"},
	}
	for _, att := range p.Attachments {
		if strings.HasPrefix(att.Type, "image/") {
			body = append(body, map[string]any{"type": "Image", "url": att.URL, "size": "Large", "altText": "Adjunto"})
			continue
		}
		body = append(body, map[string]any{
			"type": "TextBlock",
			"text": fmt.Sprintf("📎 [Descargar: %s](%s)", att.Name, att.URL),
			"wrap": true,
		})
	}

	actions := []map[string]any{
		{"type": "Action.OpenUrl", "title": "Ver Detalle", "url": p.TicketURL},
	}
	if !p.Excludes(ActionAssign) {
		actions = append(actions, map[string]any{
			"type": "Action.OpenUrl", "title": "⚡ Tomar Ticket", "url": p.ActionURL(ActionAssign), "style": "positive",
		})
	}
	if !p.Excludes(ActionResolve) {
		actions = append(actions, map[string]any{
			"type": "Action.OpenUrl", "title": "✅ Resolver", "url": p.ActionURL(ActionResolve),
		})
	}

	return map[string]any{
		"type": "message",
		"attachments": []map[string]any{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": map[string]any{
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"type":    "AdaptiveCard",
					"version": "1.4",
					"body":    body,
					"actions": actions,
				},
			},
		},
	}
}
