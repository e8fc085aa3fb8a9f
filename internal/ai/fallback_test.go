package ai

import (
	"strings"
	"testing"
)

func TestFallbackMessageCheckin(t *testing.T) {
	msg := FallbackMessage(MessageRequest{
		CallType: "weekly_checkin",
		Patient: PatientContext{
			Name:                "Amina",
			GestationalAgeWeeks: 20,
			RiskCategory:        "low",
			RiskFactors:         []string{"anemia"},
		},
	})

	if !strings.Contains(msg, "Amina") {
		t.Error("check-in message must contain the patient name")
	}
	if !strings.Contains(msg, "20 weeks") {
		t.Error("check-in message must mention gestational age")
	}
	if !strings.Contains(msg, "anemia") {
		t.Error("check-in message must reference a risk factor when present")
	}
	if !strings.Contains(msg, "press 1") {
		t.Error("check-in message must offer the leave-a-message option")
	}
}

func TestFallbackMessageMedicationReminder(t *testing.T) {
	msg := FallbackMessage(MessageRequest{
		CallType: "medication_reminder",
		Patient: PatientContext{
			Name:        "Amina",
			Medications: []MedicationInfo{{Name: "Iron supplement", Dosage: "65mg", Time: "09:00"}},
		},
	})

	for _, want := range []string{"Amina", "Iron supplement", "65mg", "09:00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("reminder message missing %q: %s", want, msg)
		}
	}
}

func TestFallbackMessageDeterministic(t *testing.T) {
	req := MessageRequest{
		CallType: "high_risk_monitoring",
		Patient: PatientContext{
			Name:        "Amina",
			RiskFactors: []string{"preeclampsia", "gestational diabetes"},
		},
	}

	first := FallbackMessage(req)
	second := FallbackMessage(req)
	if first != second {
		t.Error("fallback messages must be deterministic for the same input")
	}
	if !strings.Contains(first, "preeclampsia") {
		t.Error("monitoring message must include risk factors")
	}
}

func TestMedicationReminderOmitsEmptyParts(t *testing.T) {
	msg := MedicationReminder("Amina", "Folic acid", "", "")
	if strings.Contains(msg, ", ,") || strings.Contains(msg, "scheduled for .") {
		t.Errorf("empty dosage/time leaked into message: %s", msg)
	}
	if !strings.Contains(msg, "Folic acid") {
		t.Error("drug name missing from reminder")
	}
}
