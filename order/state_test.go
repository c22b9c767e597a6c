package order

import "testing"

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	legal := [][2]Status{
		{StatusPending, StatusResting},
		{StatusPending, StatusPartiallyFilled},
		{StatusPending, StatusDone},
		{StatusResting, StatusPartiallyFilled},
		{StatusResting, StatusDone},
		{StatusPartiallyFilled, StatusPartiallyFilled},
		{StatusPartiallyFilled, StatusDone},
		{StatusDone, StatusDone},
	}
	for _, tr := range legal {
		if err := sm.ValidateTransition(tr[0], tr[1]); err != nil {
			t.Fatalf("expected %s -> %s legal: %v", tr[0], tr[1], err)
		}
	}
	illegal := [][2]Status{
		{StatusDone, StatusResting},
		{StatusPartiallyFilled, StatusResting},
		{StatusResting, StatusPending},
	}
	for _, tr := range illegal {
		if err := sm.ValidateTransition(tr[0], tr[1]); err == nil {
			t.Fatalf("expected %s -> %s illegal", tr[0], tr[1])
		}
	}
	if !sm.IsFinalState(StatusDone) || sm.CanCancel(StatusDone) {
		t.Fatalf("DONE must be final and not cancellable")
	}
}
