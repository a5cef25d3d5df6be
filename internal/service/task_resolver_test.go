package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskRefMedication(t *testing.T) {
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rxID := "9f1b2c3d-0000-4000-8000-000000000001"

	ref := parseTaskRef(virtualTaskID("med", rxID, due))
	assert.Equal(t, refMedication, ref.kind)
	assert.Equal(t, rxID, ref.prescriptionID)
	assert.True(t, ref.due.Equal(due))
}

func TestParseTaskRefStanding(t *testing.T) {
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ref := parseTaskRef(virtualTaskID("assessment", "patient-1", due))
	assert.Equal(t, refAssessment, ref.kind)
	assert.Equal(t, "patient-1", ref.patientID)

	ref = parseTaskRef(virtualTaskID("rounds", "patient-1", due))
	assert.Equal(t, refRounds, ref.kind)
	assert.True(t, ref.due.Equal(due))
}

func TestParseTaskRefPersistedAndLegacy(t *testing.T) {
	ref := parseTaskRef("9f1b2c3d-0000-4000-8000-000000000001")
	assert.Equal(t, refPersisted, ref.kind)

	ref = parseTaskRef("old-task-17")
	assert.Equal(t, refLegacy, ref.kind)
	assert.Equal(t, "old-task-17", ref.raw)

	// A malformed structured id falls through rather than panicking.
	ref = parseTaskRef("med-")
	require.NotEqual(t, refMedication, ref.kind)
	ref = parseTaskRef("med-abc-notaunix")
	require.NotEqual(t, refMedication, ref.kind)
}
