package twiml

import (
	"encoding/xml"
	"strings"
	"testing"
)

func mustRender(t *testing.T, doc []byte, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	var parsed struct{}
	if err := xml.Unmarshal(doc, &parsed); err != nil {
		t.Fatalf("rendered document is not well-formed XML: %v\n%s", err, doc)
	}
	return string(doc)
}

func TestAnswer(t *testing.T) {
	raw, err := Answer("Hello Amina, this is your check-in.", "/webhooks/voice/key?event=abc")
	doc := mustRender(t, raw, err)

	if !strings.HasPrefix(doc, "<?xml") {
		t.Error("document must start with the XML declaration")
	}
	for _, want := range []string{
		"Hello Amina, this is your check-in.",
		`numDigits="1"`,
		`action="/webhooks/voice/key?event=abc"`,
		"Press 1",
		"<Hangup>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("answer document missing %q:\n%s", want, doc)
		}
	}

	// The script must be spoken before the gather prompt.
	if strings.Index(doc, "check-in") > strings.Index(doc, "<Gather") {
		t.Error("opening script must precede the gather")
	}
}

func TestAnswerEscapesMessage(t *testing.T) {
	raw, err := Answer("Take 5mg < twice daily & rest", "/webhooks/voice/key")
	doc := mustRender(t, raw, err)
	if strings.Contains(doc, "< twice") {
		t.Error("message text was not XML-escaped")
	}
	if !strings.Contains(doc, "&lt; twice") {
		t.Errorf("expected escaped message in:\n%s", doc)
	}
}

func TestRecordPrompt(t *testing.T) {
	raw, err := RecordPrompt("/webhooks/voice/recording?event=abc")
	doc := mustRender(t, raw, err)

	for _, want := range []string{
		`action="/webhooks/voice/recording?event=abc"`,
		`finishOnKey="#"`,
		`maxLength="60"`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("record document missing %q:\n%s", want, doc)
		}
	}
	if strings.Contains(doc, "<Hangup>") {
		t.Error("record document must not hang up before the recording")
	}
}

func TestGoodbyeAndRecordingReceivedHangUp(t *testing.T) {
	for name, fn := range map[string]func() ([]byte, error){
		"Goodbye":           Goodbye,
		"RecordingReceived": RecordingReceived,
	} {
		raw, err := fn()
		doc := mustRender(t, raw, err)
		if !strings.Contains(doc, "<Hangup>") {
			t.Errorf("%s document must hang up:\n%s", name, doc)
		}
	}
}
