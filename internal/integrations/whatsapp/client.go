package whatsapp

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrTokenExpired        = errors.New("whatsapp access token expired, renew the token in the provider console and update the configuration")
	ErrMissingRecipient    = errors.New("recipient phone number is missing")
	ErrTemplateNotApproved = errors.New("template is not approved")
)

// Message is either a free text body or a template reference.
type Message struct {
	To       string
	Body     string
	Template string
	Language string
	Params   []string
}

func (m Message) IsTemplate() bool {
	return m.Template != ""
}

type Client interface {
	// Send returns the provider message id.
	Send(ctx context.Context, m Message) (string, error)
}

// Fatal reports whether err makes every following send fail too.
func Fatal(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
