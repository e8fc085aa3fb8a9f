// Package twiml renders the TwiML documents served to Twilio during the
// scripted call flow: the opening script, the press-1 gather, and the
// message recording prompts.
package twiml

import (
	"encoding/xml"
	"fmt"
)

const (
	voiceName = "alice"
	language  = "en-US"
)

// Say speaks text to the caller.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Gather collects keypad input.
type Gather struct {
	XMLName   xml.Name `xml:"Gather"`
	NumDigits int      `xml:"numDigits,attr"`
	Action    string   `xml:"action,attr"`
	Method    string   `xml:"method,attr"`
	Timeout   int      `xml:"timeout,attr"`
	Prompt    *Say
}

// Record records the caller until the finish key or the length cap.
type Record struct {
	XMLName     xml.Name `xml:"Record"`
	Action      string   `xml:"action,attr"`
	Method      string   `xml:"method,attr"`
	FinishOnKey string   `xml:"finishOnKey,attr"`
	MaxLength   int      `xml:"maxLength,attr"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// response is the document root. Verb fields marshal in declaration order,
// which is the order Twilio executes them.
type response struct {
	XMLName xml.Name `xml:"Response"`
	// Opening and Closing hold *Say values. They are declared as any because
	// encoding/xml rejects two sibling fields of the same named-element type;
	// with interface fields the element name comes from the value's XMLName.
	Opening any `xml:",omitempty"`
	Gather  *Gather
	Record  *Record
	Closing any `xml:",omitempty"`
	Hangup  *Hangup
}

func say(text string) *Say {
	return &Say{Voice: voiceName, Language: language, Text: text}
}

func render(doc response) ([]byte, error) {
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Answer renders the document for an answered outbound call: speak the call
// script, offer press-1, say goodbye on no input.
func Answer(message, keyActionURL string) ([]byte, error) {
	return render(response{
		Opening: say(message),
		Gather: &Gather{
			NumDigits: 1,
			Action:    keyActionURL,
			Method:    "POST",
			Timeout:   10,
			Prompt:    say("Press 1 if you would like to leave a message for your care team."),
		},
		Closing: say("Thank you. Goodbye."),
		Hangup:  &Hangup{},
	})
}

// RecordPrompt renders the document served after the patient pressed 1.
func RecordPrompt(recordingActionURL string) ([]byte, error) {
	return render(response{
		Opening: say("Please leave your message after the tone. Press the pound key when you are done."),
		Record: &Record{
			Action:      recordingActionURL,
			Method:      "POST",
			FinishOnKey: "#",
			MaxLength:   60,
		},
	})
}

// Goodbye renders a polite hangup for any other key press.
func Goodbye() ([]byte, error) {
	return render(response{
		Closing: say("Thank you. Goodbye."),
		Hangup:  &Hangup{},
	})
}

// RecordingReceived renders the acknowledgement after a message was recorded.
func RecordingReceived() ([]byte, error) {
	return render(response{
		Closing: say("Thank you for your message. Your care team will get back to you soon. Goodbye."),
		Hangup:  &Hangup{},
	})
}
