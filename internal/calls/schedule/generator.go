// Package schedule generates the future call plan for a patient. Generation
// is a pure function of the patient snapshot, the existing events, and the
// clock, so re-running it is idempotent.
package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls/domain"
)

const termWeeks = 42

// Medication is the schedule-relevant slice of a patient medication entry.
type Medication struct {
	Name     string
	Dosage   string
	Weekdays []string
	Time     string
}

// Patient is the snapshot of a patient profile the generator works from.
type Patient struct {
	ID                  uuid.UUID
	Name                string
	GestationalAgeWeeks int
	RiskCategory        string
	RiskFactors         []string
	Medications         []Medication
}

// Config fixes the anchors of the generated plan.
type Config struct {
	HorizonWeeks           int
	CheckinWeekday         time.Weekday
	CheckinHour            int
	CheckinMinute          int
	HighRiskCheckinWeekday time.Weekday
	MonitoringWeekday      time.Weekday
	MonitoringHour         int
	MonitoringMinute       int
}

// Generate produces the delta of call events to persist for the patient:
// every event the plan calls for that is not already covered by an existing
// scheduled, in-progress, or completed event on the same day. All returned
// events are strictly in the future and ordered by scheduled time.
func Generate(patient Patient, existing []domain.CallEvent, now time.Time, cfg Config) []domain.CallEvent {
	weeks := cfg.HorizonWeeks
	if remaining := termWeeks - patient.GestationalAgeWeeks; remaining < weeks {
		weeks = remaining
	}
	if weeks <= 0 {
		return nil
	}

	occupied := make(map[string]bool, len(existing))
	for _, e := range existing {
		switch e.Status {
		case domain.StatusScheduled, domain.StatusInProgress, domain.StatusCompleted:
			occupied[dedupKey(e.CallType, e.ScheduledTime)] = true
		}
	}

	var out []domain.CallEvent
	emit := func(callType domain.CallType, at time.Time, message string) {
		key := dedupKey(callType, at)
		if occupied[key] {
			return
		}
		occupied[key] = true
		out = append(out, domain.CallEvent{
			PatientID:     patient.ID,
			CallType:      callType,
			ScheduledTime: at,
			MessageText:   message,
			Status:        domain.StatusScheduled,
		})
	}

	// Weekly check-ins. Check-in scripts are rendered at execution time so
	// they reflect the profile as of the call, hence the empty message.
	emitWeekly(emit, domain.CallTypeWeeklyCheckin, now, cfg.CheckinWeekday, cfg.CheckinHour, cfg.CheckinMinute, weeks, "")

	if patient.RiskCategory == "high" {
		emitWeekly(emit, domain.CallTypeWeeklyCheckin, now, cfg.HighRiskCheckinWeekday, cfg.CheckinHour, cfg.CheckinMinute, weeks, "")
		emitWeekly(emit, domain.CallTypeHighRiskMonitoring, now, cfg.MonitoringWeekday, cfg.MonitoringHour, cfg.MonitoringMinute, weeks, "")
	}

	for _, med := range patient.Medications {
		hour, minute, ok := parseClock(med.Time)
		if !ok {
			continue
		}
		message := ai.MedicationReminder(patient.Name, med.Name, med.Dosage, med.Time)
		for _, tag := range med.Weekdays {
			weekday, ok := parseWeekdayTag(tag)
			if !ok {
				continue
			}
			emitWeekly(emit, domain.CallTypeMedicationReminder, now, weekday, hour, minute, weeks, message)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].CallType < out[j].CallType
	})

	return out
}

func emitWeekly(emit func(domain.CallType, time.Time, string), callType domain.CallType, now time.Time, weekday time.Weekday, hour, minute, weeks int, message string) {
	first := nextAfter(now, weekday, hour, minute)
	for w := 0; w < weeks; w++ {
		emit(callType, first.AddDate(0, 0, 7*w), message)
	}
}

// nextAfter returns the first occurrence of weekday at hour:minute strictly
// after now, in now's location.
func nextAfter(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).
		AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// dedupKey identifies a plan slot: one event of a given type per calendar day.
func dedupKey(callType domain.CallType, at time.Time) string {
	return string(callType) + "|" + at.Format("2006-01-02")
}

var weekdayTags = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}

func parseWeekdayTag(tag string) (time.Weekday, bool) {
	wd, ok := weekdayTags[tag]
	return wd, ok
}

func parseClock(value string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
