package task

import "testing"

func TestIDsMonotonic(t *testing.T) {
	a := New("a", DefaultPriority, 0, nil)
	b := New("b", DefaultPriority, 0, nil)
	if b.ID <= a.ID {
		t.Fatalf("ids not monotonic: %d then %d", a.ID, b.ID)
	}
}

func TestPriorityClamped(t *testing.T) {
	lo := New("lo", MinPriority-5, 0, nil)
	hi := New("hi", MaxPriority+5, 0, nil)
	if lo.Priority != MinPriority {
		t.Fatalf("low priority = %d", lo.Priority)
	}
	if hi.Priority != MaxPriority {
		t.Fatalf("high priority = %d", hi.Priority)
	}
	if hi.Weight != float64(1+MaxPriority) {
		t.Fatalf("weight = %f", hi.Weight)
	}
}

func TestExitCodeWriteOnce(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	tk.SetExitCode(7)
	tk.SetExitCode(9)
	if got := tk.ExitCode(); got != 7 {
		t.Fatalf("exit code = %d, want first write 7", got)
	}
}

func TestEntryConsumedOnce(t *testing.T) {
	tk := New("x", DefaultPriority, 0, func() int { return 1 })
	if tk.TakeEntry() == nil {
		t.Fatal("first TakeEntry returned nil")
	}
	if tk.TakeEntry() != nil {
		t.Fatal("second TakeEntry returned the closure again")
	}
}

func TestWaitMembershipClaim(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	tk.SetInWait()
	if !tk.ClaimWake() {
		t.Fatal("first claim lost")
	}
	if tk.ClaimWake() {
		t.Fatal("second claim won")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("double link did not panic")
		}
	}()
	tk.SetInWait()
	tk.SetInWait()
}

func TestTimerMembership(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	tk.ArmTimer(10)
	if tk.Deadline != 10 {
		t.Fatalf("deadline = %d", tk.Deadline)
	}
	if !tk.DisarmTimer() {
		t.Fatal("first disarm lost")
	}
	if tk.DisarmTimer() {
		t.Fatal("second disarm won")
	}
}

func TestPreemptNesting(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	tk.PreemptDisable()
	tk.PreemptDisable()
	if tk.PreemptEnable() != 1 {
		t.Fatal("inner enable should leave count 1")
	}
	if tk.PreemptEnable() != 0 {
		t.Fatal("outer enable should leave count 0")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("unbalanced enable did not panic")
		}
	}()
	tk.PreemptEnable()
}

func TestNeedReschedConsumed(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	if tk.TakeNeedResched() {
		t.Fatal("fresh task wants resched")
	}
	tk.SetNeedResched()
	if !tk.TakeNeedResched() {
		t.Fatal("pending resched lost")
	}
	if tk.TakeNeedResched() {
		t.Fatal("resched honored twice")
	}
}

func TestRefSharedOwnership(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	tk.Ref()
	if tk.Unref() {
		t.Fatal("first drop reported last with a second reference held")
	}
	if !tk.Unref() {
		t.Fatal("second drop did not report last")
	}
}

func TestRefcountUnderflowPanics(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	if tk.Unref() != true {
		t.Fatal("creation reference was not the last one")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("underflow did not panic")
		}
	}()
	tk.Unref()
}

func TestStateString(t *testing.T) {
	tk := New("x", DefaultPriority, 0, nil)
	if tk.State() != Ready {
		t.Fatalf("fresh task state %v", tk.State())
	}
	tk.SetState(Blocked)
	if tk.State().String() != "Blocked" {
		t.Fatalf("String() = %q", tk.State().String())
	}
}
