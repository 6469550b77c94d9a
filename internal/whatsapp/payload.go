// Package whatsapp integrates with the WhatsApp Cloud API: webhook payload
// parsing on the way in, the graph API send client on the way out.
package whatsapp

import (
	"encoding/json"
	"strings"
)

// PayloadKind classifies an inbound webhook body.
type PayloadKind string

const (
	// PayloadText carries at least one text message to process.
	PayloadText PayloadKind = "text"
	// PayloadStatus only reports delivery status updates.
	PayloadStatus PayloadKind = "status"
	// PayloadIgnored is anything else: media, reactions, unknown shapes.
	PayloadIgnored PayloadKind = "ignored"
)

// InboundText is the first text message extracted from a webhook payload.
type InboundText struct {
	From              string
	ProviderMessageID string
	Body              string
	ContactName       string
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Type      string `json:"type"`
					Timestamp string `json:"timestamp"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWebhook classifies a webhook body and extracts the first text
// message when there is one. Malformed bodies come back as PayloadIgnored;
// the webhook always acks regardless.
func ParseWebhook(body []byte) (*InboundText, PayloadKind) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, PayloadIgnored
	}

	sawStatus := false
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			if len(value.Statuses) > 0 {
				sawStatus = true
			}
			for _, msg := range value.Messages {
				if msg.Type != "text" || strings.TrimSpace(msg.Text.Body) == "" {
					continue
				}
				in := &InboundText{
					From:              NormalizePhone(msg.From),
					ProviderMessageID: msg.ID,
					Body:              msg.Text.Body,
				}
				for _, contact := range value.Contacts {
					if NormalizePhone(contact.WaID) == in.From {
						in.ContactName = contact.Profile.Name
						break
					}
				}
				return in, PayloadText
			}
		}
	}

	if sawStatus {
		return nil, PayloadStatus
	}
	return nil, PayloadIgnored
}

// NormalizePhone strips formatting so numbers compare and key consistently.
func NormalizePhone(phone string) string {
	return strings.NewReplacer("+", "", " ", "", "-", "").Replace(phone)
}

// MaskPhone hides all but the last four digits for logs.
func MaskPhone(phone string) string {
	clean := NormalizePhone(phone)
	if len(clean) <= 4 {
		return "***"
	}
	return "***" + clean[len(clean)-4:]
}
