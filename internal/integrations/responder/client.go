package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// Client asks the reply generator for an answer to an incoming customer message.
type Client struct {
	baseURL    string
	httpc      *http.Client
	maxRetries uint64
}

func New(baseURL string, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{
			Timeout: 20 * time.Second,
		},
		maxRetries: uint64(maxRetries),
	}
}

type replyReq struct {
	Message string `json:"message"`
}

type replyResp struct {
	Reply string `json:"reply"`
}

func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("responder is not configured")
	}
	b, err := json.Marshal(replyReq{Message: message})
	if err != nil {
		return "", errors.Wrap(err, "marshal request")
	}

	var out string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reply", bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "new request"))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			return errors.Wrap(err, "do request")
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			err := fmt.Errorf("responder http %d", resp.StatusCode)
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		var r replyResp
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return backoff.Permanent(errors.Wrap(err, "decode"))
		}
		if strings.TrimSpace(r.Reply) == "" {
			return backoff.Permanent(errors.New("responder returned an empty reply"))
		}
		out = r.Reply
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)); err != nil {
		return "", err
	}
	return out, nil
}
