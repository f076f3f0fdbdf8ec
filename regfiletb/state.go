package regfiletb

//go:generate stringer -type=State -trimprefix=State

// State is the progress of the sequencer. States only move forward.
type State int

// The states of the sequencer, in order.
const (
	StateInit State = iota
	StateResetAsserted
	StateResetVerified
	StateWritesIssued
	StateReadsVerified
	StateDone
)
