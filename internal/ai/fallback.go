package ai

import (
	"fmt"
	"strings"
)

// FallbackMessage renders a deterministic call script from the patient
// profile alone. It is used when the LLM backend is unavailable and for
// message types that never need generation (medication reminders).
func FallbackMessage(req MessageRequest) string {
	switch req.CallType {
	case "medication_reminder":
		if len(req.Patient.Medications) > 0 {
			m := req.Patient.Medications[0]
			return MedicationReminder(req.Patient.Name, m.Name, m.Dosage, m.Time)
		}
		return fmt.Sprintf("Hello %s, this is your SabCare medication reminder. Please take your prescribed medication now.", req.Patient.Name)
	case "high_risk_monitoring":
		return fmt.Sprintf(
			"Hello %s, this is SabCare with your additional monitoring check. %s Please stay on the line to tell us how you are feeling today, or press 1 to leave a message for your care team.",
			req.Patient.Name, riskFactorClause(req.Patient.RiskFactors))
	case "callback":
		return fmt.Sprintf(
			"Hello %s, this is SabCare returning your call. We received your message and your care team has reviewed it. Please stay on the line, or press 1 to leave another message.",
			req.Patient.Name)
	default:
		return fmt.Sprintf(
			"Hello %s, this is your SabCare weekly check-in. You are %d weeks along. %sPlease stay on the line to tell us how you are feeling this week, or press 1 to leave a message for your care team.",
			req.Patient.Name, req.Patient.GestationalAgeWeeks, checkinRiskClause(req.Patient))
	}
}

// MedicationReminder renders the reminder script for one medication.
// Reminder texts are pre-rendered at schedule generation time, so this must
// stay deterministic.
func MedicationReminder(patientName, drug, dosage, timeOfDay string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, this is your SabCare medication reminder. It is time to take %s", patientName, drug)
	if dosage != "" {
		fmt.Fprintf(&b, ", %s", dosage)
	}
	if timeOfDay != "" {
		fmt.Fprintf(&b, ", scheduled for %s", timeOfDay)
	}
	b.WriteString(". Press 1 if you need to leave a message for your care team.")
	return b.String()
}

// FallbackSummary is the care-team note used when no transcript is
// available or summarization is unavailable.
func FallbackSummary(patientName, transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		return fmt.Sprintf("%s left a voice message requesting a callback. No transcript is available; listen to the recording.", patientName)
	}
	const maxExcerpt = 200
	excerpt := strings.TrimSpace(transcript)
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt] + "..."
	}
	return fmt.Sprintf("%s left a voice message: %q", patientName, excerpt)
}

func checkinRiskClause(p PatientContext) string {
	if p.RiskCategory == "high" && len(p.RiskFactors) > 0 {
		return fmt.Sprintf("Because of your history of %s, we are checking in with you more often. ", p.RiskFactors[0])
	}
	if len(p.RiskFactors) > 0 {
		return fmt.Sprintf("We are keeping an eye on your %s. ", p.RiskFactors[0])
	}
	return ""
}

func riskFactorClause(factors []string) string {
	if len(factors) == 0 {
		return "We are monitoring your pregnancy closely."
	}
	return fmt.Sprintf("We are monitoring your %s closely.", strings.Join(factors, " and "))
}
