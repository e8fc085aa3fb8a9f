// Package elevenlabs places outbound calls through an ElevenLabs
// conversational AI agent bridged over Twilio.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/config"
	"sabcare_backend/platform/logger"
)

const apiBaseURL = "https://api.elevenlabs.io"

// Client is the ElevenLabs voice agent provider.
type Client struct {
	apiKey        string
	agentID       string
	phoneNumberID string
	http          *http.Client
	log           *logger.Logger
}

// NewClient creates an ElevenLabs client. Returns nil when the agent is
// disabled or not configured.
func NewClient(cfg config.ElevenLabsConfig, log *logger.Logger) *Client {
	if !cfg.IsVoiceAgentEnabled() {
		return nil
	}

	return &Client{
		apiKey:        cfg.GetElevenLabsAPIKey(),
		agentID:       cfg.GetElevenLabsAgentID(),
		phoneNumberID: cfg.GetElevenLabsPhoneNumberID(),
		http:          &http.Client{Timeout: 15 * time.Second},
		log:           log,
	}
}

// Compile-time check that Client implements voice.Provider.
var _ voice.Provider = (*Client)(nil)

type outboundCallRequest struct {
	AgentID            string              `json:"agent_id"`
	AgentPhoneNumberID string              `json:"agent_phone_number_id"`
	ToNumber           string              `json:"to_number"`
	InitiationData     *initiationData     `json:"conversation_initiation_client_data,omitempty"`
}

// initiationData seeds the agent's opening turn with the rendered call
// script so the conversation starts on topic.
type initiationData struct {
	InitialMessage string `json:"initial_message,omitempty"`
	Context        string `json:"context,omitempty"`
}

type outboundCallResponse struct {
	CallSID string `json:"callSid"`
	AltSID  string `json:"call_sid"`
	Detail  string `json:"detail"`
}

// PlaceCall starts an agent call and returns the underlying Twilio call SID.
func (c *Client) PlaceCall(ctx context.Context, req voice.CallRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: elevenlabs agent not configured", voice.ErrAuth)
	}
	if c.agentID == "" || c.phoneNumberID == "" {
		return "", fmt.Errorf("%w: elevenlabs agent_id or phone_number_id missing", voice.ErrAuth)
	}

	payload := outboundCallRequest{
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.phoneNumberID,
		ToNumber:           req.To,
	}
	if req.Message != "" {
		payload.InitiationData = &initiationData{
			InitialMessage: req.Message,
			Context:        req.Message,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal elevenlabs payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBaseURL+"/v1/convai/twilio/outbound-call", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", voice.ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= http.StatusBadRequest {
		return "", classifyHTTPError(resp.StatusCode, data)
	}

	var call outboundCallResponse
	if err := json.Unmarshal(data, &call); err != nil {
		return "", fmt.Errorf("%w: decode elevenlabs response: %v", voice.ErrTransient, err)
	}

	sid := call.CallSID
	if sid == "" {
		sid = call.AltSID
	}
	if sid == "" {
		return "", fmt.Errorf("%w: elevenlabs returned no call sid", voice.ErrTransient)
	}

	c.log.Info("elevenlabs agent call initiated", "callSid", sid, "agentId", c.agentID)
	return sid, nil
}

func classifyHTTPError(status int, body []byte) error {
	var apiErr outboundCallResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := strings.TrimSpace(apiErr.Detail)
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: elevenlabs rate limited: %s", voice.ErrTransient, detail)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: elevenlabs returned %d: %s", voice.ErrTransient, status, detail)
	default:
		return fmt.Errorf("%w: elevenlabs returned %d: %s", voice.ErrAuth, status, detail)
	}
}
