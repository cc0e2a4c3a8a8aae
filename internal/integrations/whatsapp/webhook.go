package whatsapp

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/BearBump/ParcelBox/internal/broker/messages"
	"github.com/pkg/errors"
)

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text,omitempty"`
					Button *struct {
						Text string `json:"text"`
					} `json:"button,omitempty"`
					Interactive *struct {
						ButtonReply *struct {
							Title string `json:"title"`
						} `json:"button_reply,omitempty"`
						ListReply *struct {
							Title string `json:"title"`
						} `json:"list_reply,omitempty"`
					} `json:"interactive,omitempty"`
					Image *struct {
						Caption string `json:"caption"`
					} `json:"image,omitempty"`
				} `json:"messages"`
				Statuses []struct {
					ID          string `json:"id"`
					Status      string `json:"status"`
					Timestamp   string `json:"timestamp"`
					RecipientID string `json:"recipient_id"`
					Errors      []struct {
						Code    int    `json:"code"`
						Title   string `json:"title"`
						Message string `json:"message"`
					} `json:"errors"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWebhook turns a provider callback into events. Unknown fields and shapes are skipped.
func ParseWebhook(body []byte) ([]messages.WhatsAppEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errors.Wrap(err, "decode webhook")
	}

	var out []messages.WhatsAppEvent
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			if ch.Field != "" && ch.Field != "messages" {
				continue
			}
			for _, st := range ch.Value.Statuses {
				ev := messages.WhatsAppEvent{
					Envelope: messages.NewEnvelope(messages.TypeWhatsAppStatus),
					Status: &messages.WhatsAppStatus{
						MessageID: st.ID,
						Recipient: st.RecipientID,
						Status:    st.Status,
						Timestamp: unixTime(st.Timestamp),
					},
				}
				if len(st.Errors) > 0 {
					msg := st.Errors[0].Message
					if msg == "" {
						msg = st.Errors[0].Title
					}
					if msg == "" {
						msg = "error " + strconv.Itoa(st.Errors[0].Code)
					}
					ev.Status.Error = &msg
				}
				out = append(out, ev)
			}
			for _, m := range ch.Value.Messages {
				content := "[" + m.Type + "]"
				switch {
				case m.Text != nil:
					content = m.Text.Body
				case m.Button != nil:
					content = m.Button.Text
				case m.Interactive != nil && m.Interactive.ButtonReply != nil:
					content = m.Interactive.ButtonReply.Title
				case m.Interactive != nil && m.Interactive.ListReply != nil:
					content = m.Interactive.ListReply.Title
				case m.Image != nil && m.Image.Caption != "":
					content = m.Image.Caption
				}
				out = append(out, messages.WhatsAppEvent{
					Envelope: messages.NewEnvelope(messages.TypeWhatsAppMessage),
					Message: &messages.WhatsAppMessage{
						MessageID: m.ID,
						From:      m.From,
						Type:      m.Type,
						Content:   content,
						Timestamp: unixTime(m.Timestamp),
					},
				})
			}
		}
	}
	return out, nil
}

func unixTime(s string) time.Time {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil || sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
