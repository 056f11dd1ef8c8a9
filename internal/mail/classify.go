package mail

import "strings"

// Kind identifies which export format an attachment carries.
type Kind int

const (
	// KindUnknown means the filename matched no recognized pattern.
	KindUnknown Kind = iota
	// KindFitNotes is a flat FitNotes workout CSV export.
	KindFitNotes
	// KindLoopHabits is a zipped Loop Habit Tracker export.
	KindLoopHabits
)

// String returns a short name for the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindFitNotes:
		return "fitnotes"
	case KindLoopHabits:
		return "loop_habits"
	default:
		return "unknown"
	}
}

// Classify decides whether a filename belongs to a recognized export and
// which parser applies. Matching is exact and case-sensitive; anything
// else is a normal "not ours" outcome, not an error.
func Classify(filename string) (Kind, bool) {
	if strings.Contains(filename, "FitNotes_Export_") && strings.HasSuffix(filename, ".csv") {
		return KindFitNotes, true
	}
	if strings.Contains(filename, "Loop Habits CSV") && strings.HasSuffix(filename, ".zip") {
		return KindLoopHabits, true
	}
	return KindUnknown, false
}
