package tts

// SequencerState represents the playback sequencer's lifecycle state.
type SequencerState int

const (
	// StateIdle indicates no chunks are loaded.
	StateIdle SequencerState = iota
	// StatePriming indicates playback has started but chunk 0 has not
	// arrived yet.
	StatePriming
	// StatePlaying indicates a chunk is actively playing.
	StatePlaying
	// StatePaused indicates playback is paused.
	StatePaused
	// StateWaiting indicates the current chunk finished but the next one
	// has not arrived yet.
	StateWaiting
	// StateComplete indicates the last expected chunk finished.
	StateComplete
)

// String returns the string representation of the state.
func (s SequencerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePriming:
		return "priming"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateWaiting:
		return "waiting"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// IsActive returns true if playback is in progress or paused.
func (s SequencerState) IsActive() bool {
	return s == StatePlaying || s == StatePaused || s == StateWaiting
}

// stateMachine guards sequencer state transitions with an explicit table.
// Waiting is entered only through an engine completion event and left only
// through chunk arrival, pause, or stop; there is no polling.
type stateMachine struct {
	current     SequencerState
	transitions map[SequencerState][]SequencerState
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[SequencerState][]SequencerState{
			StateIdle:     {StatePriming},
			StatePriming:  {StatePlaying, StatePaused, StateIdle},
			StatePlaying:  {StatePaused, StateWaiting, StateComplete, StateIdle},
			StatePaused:   {StatePlaying, StatePriming, StateIdle},
			StateWaiting:  {StatePlaying, StatePaused, StateComplete, StateIdle},
			StateComplete: {StatePlaying, StatePaused, StateIdle},
		},
	}
}

// transition attempts to move to the given state, reporting success.
func (m *stateMachine) transition(to SequencerState) bool {
	for _, s := range m.transitions[m.current] {
		if s == to {
			m.current = to
			return true
		}
	}
	return false
}

// state returns the current state.
func (m *stateMachine) state() SequencerState {
	return m.current
}
