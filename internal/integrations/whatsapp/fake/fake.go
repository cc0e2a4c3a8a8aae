package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
)

// Client is a local stand-in for the provider: it sends nothing and remembers messages.
// Номера из Fail возвращают заданную ошибку.
type Client struct {
	mu   sync.Mutex
	seq  int
	sent []whatsapp.Message
	Fail map[string]error
}

func New() *Client { return &Client{Fail: map[string]error{}} }

func (c *Client) Send(ctx context.Context, m whatsapp.Message) (string, error) {
	if m.To == "" {
		return "", whatsapp.ErrMissingRecipient
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.Fail[m.To]; ok {
		return "", err
	}
	c.seq++
	c.sent = append(c.sent, m)
	return fmt.Sprintf("wamid.fake.%d", c.seq), nil
}

func (c *Client) Sent() []whatsapp.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]whatsapp.Message(nil), c.sent...)
}
