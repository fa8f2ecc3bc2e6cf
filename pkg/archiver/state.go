package archiver

// State tracks where a job is in its two-phase lifecycle. Interrupted is
// reachable from any in-progress state; the next run re-enters the same
// state from the persisted progress record.
type State int

const (
	StateNotStarted State = iota
	StateTextPhase
	StateTextComplete
	StateMediaOffered
	StateMediaPhase
	StateDone
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateTextPhase:
		return "text_phase"
	case StateTextComplete:
		return "text_complete"
	case StateMediaOffered:
		return "media_offered"
	case StateMediaPhase:
		return "media_phase"
	case StateDone:
		return "done"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}
