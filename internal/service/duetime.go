package service

import (
	"time"

	"hospital-ops/internal/domain"
)

// Hours per dose by prescription frequency string.
var frequencyHours = map[string]int{
	"q4h":   4,
	"q6h":   6,
	"q8h":   8,
	"q12h":  12,
	"daily": 24,
	"bid":   12,
	"tid":   8,
	"qid":   6,
}

// defaultFrequencyHours is used for unrecognized frequency strings.
const defaultFrequencyHours = 8

// taskHorizon bounds how far ahead medication tasks are materialized.
const taskHorizon = 24 * time.Hour

// Standing task lead times.
const (
	assessmentLead = 2 * time.Hour
	roundsLead     = time.Hour
)

// FrequencyInterval maps a frequency string to the interval between doses.
func FrequencyInterval(frequency string) time.Duration {
	hours, ok := frequencyHours[frequency]
	if !ok {
		hours = defaultFrequencyHours
	}
	return time.Duration(hours) * time.Hour
}

// NextDoseTime computes when the next dose of a prescription is due.
// Missed doses are never enumerated individually: the result always collapses
// forward to the next interval boundary strictly after now.
func NextDoseTime(p *domain.Prescription, now time.Time) time.Time {
	interval := FrequencyInterval(p.Frequency)

	last := p.LastAdministration()
	if last == nil {
		if p.StartDate.After(now) {
			return p.StartDate
		}
		dosesSinceStart := now.Sub(p.StartDate) / interval
		next := p.StartDate.Add((dosesSinceStart + 1) * interval)
		if !next.After(now) {
			next = now.Add(interval)
		}
		return next
	}

	next := last.AdministeredAt.Add(interval)
	if !next.After(now) {
		missed := now.Sub(last.AdministeredAt) / interval
		next = last.AdministeredAt.Add((missed + 1) * interval)
		if !next.After(now) {
			next = now.Add(interval)
		}
	}
	return next
}

// DuePriority bands a due time into a task priority.
func DuePriority(due, now time.Time) string {
	until := due.Sub(now)
	switch {
	case until < 30*time.Minute:
		return domain.PriorityUrgent
	case until < 2*time.Hour:
		return domain.PriorityHigh
	default:
		return domain.PriorityMedium
	}
}
