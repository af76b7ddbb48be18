package domain

import (
	"time"

	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

// HasConflict reports whether [start, end) for the consultant on date clashes
// with any existing schedule: the intervals overlap or the gap between them is
// shorter than breakBuffer. A gap equal to the buffer is allowed.
func HasConflict(existing []*Schedule, consultantID int64, date time.Time, start, end types.TimeString, breakBuffer int) bool {
	conflict, ok := FindConflict(existing, consultantID, date, start, end, breakBuffer)
	return conflict != nil || !ok
}

// FindConflict returns the first conflicting schedule. ok is false when the
// candidate interval itself is malformed; such a candidate is never bookable.
// Stored schedules with unparseable times are skipped.
func FindConflict(existing []*Schedule, consultantID int64, date time.Time, start, end types.TimeString, breakBuffer int) (*Schedule, bool) {
	candidateStart, err := start.Minutes()
	if err != nil {
		return nil, false
	}
	candidateEnd, err := end.Minutes()
	if err != nil || candidateEnd <= candidateStart {
		return nil, false
	}

	for _, s := range existing {
		if s == nil || s.ConsultantID != consultantID || !s.IsActive() || !SameDate(s.Date, date) {
			continue
		}

		bookedStart, bookedEnd, err := s.Bounds()
		if err != nil {
			continue
		}

		if intervalsClash(candidateStart, candidateEnd, bookedStart, bookedEnd, breakBuffer) {
			return s, true
		}
	}

	return nil, true
}

// intervalsClash пересечение или перерыв меньше буфера
func intervalsClash(startA, endA, startB, endB, breakBuffer int) bool {
	if types.IntervalsOverlap(startA, endA, startB, endB) {
		return true
	}

	if endA <= startB {
		return types.GapMinutes(endA, startB) < breakBuffer
	}
	return types.GapMinutes(endB, startA) < breakBuffer
}
