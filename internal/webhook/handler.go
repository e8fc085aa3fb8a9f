package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sabcare_backend/internal/voice/twiml"
	"sabcare_backend/platform/httpkit"
)

// Handler serves the Twilio webhook endpoints. Every endpoint answers 200
// with a TwiML document (or empty body for status callbacks); provider
// retries are pointless once we have logged the payload.
type Handler struct {
	svc *Service
}

// NewHandler creates a webhook handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Answer serves the call script once the callee picks up. Outbound calls
// carry the event reference in the query; without one this is a patient
// dialing the care line, who gets a greeting and the press-1 offer.
// POST /webhooks/voice/answer?event=<id>
func (h *Handler) Answer(c *gin.Context) {
	eventID, err := uuid.Parse(c.Query("event"))
	if err != nil {
		h.answerInbound(c)
		return
	}

	event, err := h.svc.LookupEvent(c.Request.Context(), eventID)
	if err != nil {
		h.serveGoodbye(c)
		return
	}

	message := event.MessageText
	if message == "" {
		message = "Hello, this is SabCare checking in on you."
	}

	doc, err := twiml.Answer(message, "/webhooks/voice/key?event="+eventID.String())
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	httpkit.TwiML(c, doc)
}

// answerInbound greets a patient calling the care line directly.
func (h *Handler) answerInbound(c *gin.Context) {
	message := "Hello, this is SabCare. Thank you for calling."
	if caller, ok := h.svc.IdentifyCaller(c.Request.Context(), c.PostForm("From")); ok {
		message = "Hello " + caller.Name + ", this is SabCare. How can we help you today?"
	}

	doc, err := twiml.Answer(message, "/webhooks/voice/key")
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	httpkit.TwiML(c, doc)
}

// KeyPress handles the gather result during a call. Inbound calls have no
// event reference; press-1 still leads to the record prompt.
// POST /webhooks/voice/key?event=<id>
func (h *Handler) KeyPress(c *gin.Context) {
	digits := c.PostForm("Digits")
	if digits != "1" {
		h.serveGoodbye(c)
		return
	}

	recordingURL := "/webhooks/voice/recording"
	if eventID, err := uuid.Parse(c.Query("event")); err == nil {
		h.svc.RecordKeyPress(c.Request.Context(), eventID)
		recordingURL += "?event=" + eventID.String()
	}

	doc, err := twiml.RecordPrompt(recordingURL)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	httpkit.TwiML(c, doc)
}

// Recording receives the recorded patient message.
// POST /webhooks/voice/recording?event=<id>
func (h *Handler) Recording(c *gin.Context) {
	in := RecordingInput{
		RecordingURL: c.PostForm("RecordingUrl"),
		CallSID:      c.PostForm("CallSid"),
		Transcript:   c.PostForm("TranscriptionText"),
	}
	if eventID, err := uuid.Parse(c.Query("event")); err == nil {
		// Outbound call: we dialed the patient, so they are in To.
		in.CallEventID = &eventID
		in.CallerNumber = c.PostForm("To")
	} else {
		// Inbound call: the patient dialed the care line.
		in.CallerNumber = c.PostForm("From")
	}
	if in.CallerNumber == "" {
		in.CallerNumber = c.PostForm("From")
	}

	if err := h.svc.ReceiveRecording(c.Request.Context(), in); err != nil {
		// The recording is already on the provider side; acknowledge
		// anyway and rely on logs for recovery.
		c.Status(http.StatusOK)
		return
	}

	doc, err := twiml.RecordingReceived()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	httpkit.TwiML(c, doc)
}

// Status receives call status callbacks.
// POST /webhooks/voice/status
func (h *Handler) Status(c *gin.Context) {
	callSID := c.PostForm("CallSid")
	callStatus := c.PostForm("CallStatus")
	if callSID == "" || callStatus == "" {
		c.Status(http.StatusOK)
		return
	}

	h.svc.ReconcileStatus(c.Request.Context(), callSID, callStatus)
	c.Status(http.StatusOK)
}

func (h *Handler) serveGoodbye(c *gin.Context) {
	doc, err := twiml.Goodbye()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	httpkit.TwiML(c, doc)
}
