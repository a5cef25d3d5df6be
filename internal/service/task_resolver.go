package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task references arrive in three shapes: the UUID of a persisted record, a
// structured id for a derivable-but-not-yet-materialized task, or a legacy id
// embedded in an old shift record. The structured formats are
//
//	med-<prescriptionID>-<unix>
//	assessment-<patientID>-<unix>
//	rounds-<patientID>-<unix>
//
// decoded once here so the id grammar lives in a single place.
type taskRefKind int

const (
	refPersisted taskRefKind = iota
	refMedication
	refAssessment
	refRounds
	refLegacy
)

type taskRef struct {
	kind           taskRefKind
	prescriptionID string
	patientID      string
	due            time.Time
	raw            string
}

func parseTaskRef(id string) taskRef {
	for prefix, kind := range map[string]taskRefKind{
		"med-":        refMedication,
		"assessment-": refAssessment,
		"rounds-":     refRounds,
	} {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		// The trailing segment is the unix due time; the subject id in the
		// middle may itself contain hyphens (UUIDs do).
		cut := strings.LastIndex(rest, "-")
		if cut <= 0 {
			break
		}
		ts, err := strconv.ParseInt(rest[cut+1:], 10, 64)
		if err != nil {
			break
		}
		ref := taskRef{kind: kind, due: time.Unix(ts, 0).UTC(), raw: id}
		if kind == refMedication {
			ref.prescriptionID = rest[:cut]
		} else {
			ref.patientID = rest[:cut]
		}
		return ref
	}

	if _, err := uuid.Parse(id); err == nil {
		return taskRef{kind: refPersisted, raw: id}
	}
	return taskRef{kind: refLegacy, raw: id}
}

// virtualTaskID builds the structured id for a derivable task.
func virtualTaskID(prefix, subjectID string, due time.Time) string {
	return prefix + "-" + subjectID + "-" + strconv.FormatInt(due.Unix(), 10)
}
