package fake

import (
	"context"
	"testing"

	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	c := New()
	c.Fail["222"] = whatsapp.ErrTokenExpired

	id, err := c.Send(context.Background(), whatsapp.Message{To: "111", Body: "hola"})
	require.NoError(t, err)
	require.Equal(t, "wamid.fake.1", id)

	_, err = c.Send(context.Background(), whatsapp.Message{To: "222", Body: "hola"})
	require.ErrorIs(t, err, whatsapp.ErrTokenExpired)

	_, err = c.Send(context.Background(), whatsapp.Message{Body: "hola"})
	require.ErrorIs(t, err, whatsapp.ErrMissingRecipient)

	require.Len(t, c.Sent(), 1)
}
