package confirm

import (
	"context"

	"github.com/looplab/fsm"
)

// State is a step in an invocation's lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateInvoked   State = "invoked"
	StateDenied    State = "permission_denied"
	StateDetails   State = "details_view"
	StatePending   State = "confirmation_pending"
	StateExecuting State = "executing"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateAborted   State = "aborted"
)

const (
	eventInvoke  = "invoke"
	eventDeny    = "deny"
	eventDetails = "details"
	eventPrompt  = "prompt"
	eventExecute = "execute"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventCancel  = "cancel"
	eventReset   = "reset"
)

func states(ss ...State) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

// newMachine builds the per-invocation state machine. onFinish runs when the
// invocation reaches a terminal outcome; the invocation travels in Args[0].
func newMachine(onFinish func(ctx context.Context, e *fsm.Event)) *fsm.FSM {
	events := fsm.Events{
		{Name: eventInvoke, Src: states(StateIdle), Dst: string(StateInvoked)},
		{Name: eventDeny, Src: states(StateInvoked), Dst: string(StateDenied)},
		{Name: eventDetails, Src: states(StateInvoked), Dst: string(StateDetails)},
		{Name: eventPrompt, Src: states(StateInvoked), Dst: string(StatePending)},
		{Name: eventExecute, Src: states(StateInvoked, StatePending), Dst: string(StateExecuting)},
		{Name: eventSucceed, Src: states(StateExecuting), Dst: string(StateSucceeded)},
		{Name: eventFail, Src: states(StateExecuting), Dst: string(StateFailed)},
		{Name: eventCancel, Src: states(StatePending), Dst: string(StateAborted)},

		// every resting state returns to idle
		{Name: eventReset, Src: states(StateDenied, StateDetails, StateSucceeded, StateFailed, StateAborted), Dst: string(StateIdle)},
	}

	callbacks := fsm.Callbacks{
		"enter_" + string(StateSucceeded): onFinish,
		"enter_" + string(StateFailed):    onFinish,
		"enter_" + string(StateAborted):   onFinish,
	}

	return fsm.NewFSM(string(StateIdle), events, callbacks)
}
