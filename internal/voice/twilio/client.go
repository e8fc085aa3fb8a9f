// Package twilio places scripted outbound calls through the Twilio REST API.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/config"
	"sabcare_backend/platform/logger"
)

const apiBaseURL = "https://api.twilio.com/2010-04-01"

// Client is the Twilio voice provider. It serves the scripted TwiML flow:
// Twilio fetches the call document from our answer webhook once the callee
// picks up. It also sends SMS notifications as a secondary operator channel.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	serverURL  string
	baseURL    string
	http       *http.Client
	log        *logger.Logger
}

// NewClient creates a Twilio client. Returns nil when credentials are not
// configured; a nil client rejects every call with an auth error.
func NewClient(cfg config.TwilioConfig, log *logger.Logger) *Client {
	if cfg.GetTwilioAccountSID() == "" || cfg.GetTwilioAuthToken() == "" {
		return nil
	}

	return &Client{
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		fromNumber: cfg.GetTwilioFromNumber(),
		serverURL:  strings.TrimRight(cfg.GetServerBaseURL(), "/"),
		baseURL:    apiBaseURL,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Compile-time check that Client implements voice.Provider.
var _ voice.Provider = (*Client)(nil)

type callResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PlaceCall starts an outbound call and returns the Twilio call SID.
func (c *Client) PlaceCall(ctx context.Context, req voice.CallRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: twilio credentials not configured", voice.ErrAuth)
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", c.fromNumber)
	form.Set("Url", fmt.Sprintf("%s/webhooks/voice/answer?event=%s", c.serverURL, url.QueryEscape(req.EventID)))
	form.Set("Method", "POST")
	form.Set("StatusCallback", c.serverURL+"/webhooks/voice/status")
	form.Set("StatusCallbackMethod", "POST")
	for _, event := range []string{"completed", "busy", "no-answer", "failed", "canceled"} {
		form.Add("StatusCallbackEvent", event)
	}

	call, err := c.postResource(ctx, "Calls.json", form)
	if err != nil {
		return "", err
	}
	if call.SID == "" {
		return "", fmt.Errorf("%w: twilio returned no call sid", voice.ErrTransient)
	}

	c.log.Info("twilio call initiated", "callSid", call.SID, "status", call.Status)
	return call.SID, nil
}

// SendSMS sends a text message and returns the Twilio message SID. Serves
// as a secondary operator-notification channel when email is not set up.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: twilio credentials not configured", voice.ErrAuth)
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	msg, err := c.postResource(ctx, "Messages.json", form)
	if err != nil {
		return "", err
	}
	if msg.SID == "" {
		return "", fmt.Errorf("%w: twilio returned no message sid", voice.ErrTransient)
	}

	c.log.Info("twilio sms sent", "messageSid", msg.SID, "status", msg.Status)
	return msg.SID, nil
}

// postResource submits a form to one of the account's REST resources and
// decodes the response.
func (c *Client) postResource(ctx context.Context, resource string, form url.Values) (callResponse, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, c.accountSID, resource)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return callResponse{}, err
	}
	httpReq.SetBasicAuth(c.accountSID, c.authToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return callResponse{}, fmt.Errorf("%w: %v", voice.ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= http.StatusBadRequest {
		return callResponse{}, classifyHTTPError(resp.StatusCode, body)
	}

	var decoded callResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return callResponse{}, fmt.Errorf("%w: decode twilio response: %v", voice.ErrTransient, err)
	}
	return decoded, nil
}

// classifyHTTPError maps a Twilio error response onto the provider error
// taxonomy. Client-side errors mean our credentials or configuration are
// wrong and retrying cannot help; everything server-side is transient.
func classifyHTTPError(status int, body []byte) error {
	var apiErr callResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := strings.TrimSpace(apiErr.Message)
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: twilio rate limited: %s", voice.ErrTransient, detail)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: twilio returned %d: %s", voice.ErrTransient, status, detail)
	default:
		return fmt.Errorf("%w: twilio returned %d (code %d): %s", voice.ErrAuth, status, apiErr.Code, detail)
	}
}
