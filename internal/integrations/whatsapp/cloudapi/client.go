package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/whatsapp"
	"github.com/pkg/errors"
)

// Graph API error codes we react to.
const (
	codeAccessTokenExpired = 190
	codeRecipientInvalid   = 131026
	codeRecipientNotAllow  = 131030
	codeTemplateMissing    = 132001
	codeTemplatePaused     = 132015
	codeTemplateDisabled   = 132016
)

type Client struct {
	baseURL       string
	apiVersion    string
	phoneNumberID string
	token         string
	httpc         *http.Client
}

func New(baseURL, apiVersion, phoneNumberID, token string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if apiVersion == "" {
		apiVersion = "v21.0"
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiVersion:    apiVersion,
		phoneNumberID: phoneNumberID,
		token:         token,
		httpc: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type textBody struct {
	Body string `json:"body"`
}

type templateParam struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string          `json:"type"`
	Parameters []templateParam `json:"parameters"`
}

type templateBody struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type sendReq struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Template         *templateBody `json:"template,omitempty"`
}

type sendResp struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResp struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		ErrorData    struct {
			Details string `json:"details"`
		} `json:"error_data"`
	} `json:"error"`
}

func (c *Client) Send(ctx context.Context, m whatsapp.Message) (string, error) {
	if strings.TrimSpace(m.To) == "" {
		return "", whatsapp.ErrMissingRecipient
	}

	body := sendReq{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               m.To,
	}
	if m.IsTemplate() {
		t := &templateBody{Name: m.Template}
		t.Language.Code = m.Language
		if t.Language.Code == "" {
			t.Language.Code = "es"
		}
		if len(m.Params) > 0 {
			comp := templateComponent{Type: "body"}
			for _, p := range m.Params {
				comp.Parameters = append(comp.Parameters, templateParam{Type: "text", Text: p})
			}
			t.Components = []templateComponent{comp}
		}
		body.Type = "template"
		body.Template = t
	} else {
		body.Type = "text"
		body.Text = &textBody{Body: m.Body}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, "marshal message")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", errors.Wrap(err, "parse base url")
	}
	u.Path = fmt.Sprintf("/%s/%s/messages", c.apiVersion, url.PathEscape(c.phoneNumberID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return "", errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", decodeError(resp)
	}

	var r sendResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", errors.Wrap(err, "decode")
	}
	if len(r.Messages) == 0 || r.Messages[0].ID == "" {
		return "", errors.New("whatsapp response has no message id")
	}
	return r.Messages[0].ID, nil
}

func decodeError(resp *http.Response) error {
	var e errorResp
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error.Code == 0 {
		if resp.StatusCode == http.StatusUnauthorized {
			return whatsapp.ErrTokenExpired
		}
		return fmt.Errorf("whatsapp http %d", resp.StatusCode)
	}

	msg := e.Error.Message
	if d := e.Error.ErrorData.Details; d != "" {
		msg += ": " + d
	}
	switch e.Error.Code {
	case codeAccessTokenExpired:
		return whatsapp.ErrTokenExpired
	case codeRecipientInvalid, codeRecipientNotAllow:
		return errors.Wrap(whatsapp.ErrMissingRecipient, msg)
	case codeTemplateMissing, codeTemplatePaused, codeTemplateDisabled:
		return &TemplateError{Message: msg}
	}
	return fmt.Errorf("whatsapp error %d: %s", e.Error.Code, msg)
}

// TemplateError keeps the provider message verbatim and matches whatsapp.ErrTemplateNotApproved.
type TemplateError struct {
	Message string
}

func (e *TemplateError) Error() string { return e.Message }

func (e *TemplateError) Is(target error) bool { return target == whatsapp.ErrTemplateNotApproved }
