package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"sabcare_backend/platform/config"
	"sabcare_backend/platform/logger"
)

// Gemini renders call scripts and summaries through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewGemini creates a Gemini-backed generator. Returns (nil, nil) when no
// API key is configured; callers treat a nil generator as always
// unavailable and use fallback templates.
func NewGemini(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (*Gemini, error) {
	apiKey := cfg.GetGeminiAPIKey()
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: cfg.GetGeminiModel(), log: log}, nil
}

// Compile-time check that Gemini implements Generator.
var _ Generator = (*Gemini)(nil)

// RenderMessage generates a personalized call script for the patient.
func (g *Gemini) RenderMessage(ctx context.Context, req MessageRequest) (string, error) {
	if g == nil {
		return "", ErrGenerationUnavailable
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(buildMessagePrompt(req)), nil)
	if err != nil {
		g.log.Warn("gemini message generation failed", "callType", req.CallType, "error", err)
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrGenerationUnavailable
	}

	return text, nil
}

// SummarizeMessage condenses a transcript into a short care-team note.
func (g *Gemini) SummarizeMessage(ctx context.Context, patientName, transcript string) (string, error) {
	if g == nil {
		return "", ErrGenerationUnavailable
	}

	prompt := fmt.Sprintf(
		"Summarize this recorded phone message from pregnant patient %s for her maternity care team in at most two sentences. "+
			"Flag any symptom that may need urgent attention. Message transcript:\n\n%s",
		patientName, transcript)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.log.Warn("gemini summarization failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrGenerationUnavailable
	}

	return text, nil
}

func buildMessagePrompt(req MessageRequest) string {
	var b strings.Builder
	b.WriteString("You write short spoken scripts for automated maternity care calls. ")
	b.WriteString("Write the exact words to be spoken, warm and clear, at most four sentences, no stage directions. ")
	b.WriteString("End by inviting the patient to press 1 to leave a message for her care team.\n\n")

	fmt.Fprintf(&b, "Call type: %s\n", req.CallType)
	fmt.Fprintf(&b, "Patient: %s, %d weeks pregnant, risk category %s\n",
		req.Patient.Name, req.Patient.GestationalAgeWeeks, req.Patient.RiskCategory)
	if len(req.Patient.RiskFactors) > 0 {
		fmt.Fprintf(&b, "Risk factors: %s\n", strings.Join(req.Patient.RiskFactors, ", "))
	}
	for _, m := range req.Patient.Medications {
		fmt.Fprintf(&b, "Medication: %s %s at %s\n", m.Name, m.Dosage, m.Time)
	}

	return b.String()
}
