package adapters

import (
	"context"

	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/voice/twilio"
)

// SMSAlertAdapter delivers operator alerts as text messages through the
// Twilio client. Used when no SMTP transport is configured.
type SMSAlertAdapter struct {
	client        *twilio.Client
	operatorPhone string
}

// NewSMSAlertAdapter creates an adapter over the Twilio client.
func NewSMSAlertAdapter(client *twilio.Client, operatorPhone string) *SMSAlertAdapter {
	return &SMSAlertAdapter{client: client, operatorPhone: operatorPhone}
}

// Compile-time check against the execution engine port.
var _ execution.Alerter = (*SMSAlertAdapter)(nil)

// SendOperatorAlert sends the alert as a single SMS.
func (a *SMSAlertAdapter) SendOperatorAlert(ctx context.Context, subject, body string) error {
	_, err := a.client.SendSMS(ctx, a.operatorPhone, subject+": "+body)
	return err
}
