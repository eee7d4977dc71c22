package datastore

import "sync/atomic"

// ScheduleToken identifies one pending scheduled-reducer call (SPEC_FULL
// supplemented feature 6). It is an opaque handle: callers compare it for
// equality and pass it back to Cancel/Erase, never inspect its value.
type ScheduleToken uint64

// ReducerID names a reducer within the module's describe_module table.
type ReducerID uint32

type scheduledCall struct {
	reducer ReducerID
	args    []byte
	atNanos int64
}

// Scheduler holds the host-side table of pending reducer calls created by
// schedule_reducer (module ABI). It is independent of Store/TxId/MutTxId
// because scheduling is not a transactional catalog concept in the
// original (bindings/src/lib.rs schedules from outside any open
// transaction) — it lives alongside the Store, not inside it.
type Scheduler struct {
	nextToken atomic.Uint64
	pending   map[ScheduleToken]scheduledCall
}

// NewScheduler constructs an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[ScheduleToken]scheduledCall)}
}

// Schedule registers reducer to run at atNanos with args, returning a
// token that can later be used to Cancel or Erase it.
func (sc *Scheduler) Schedule(reducer ReducerID, args []byte, atNanos int64) ScheduleToken {
	tok := ScheduleToken(sc.nextToken.Add(1))
	sc.pending[tok] = scheduledCall{reducer: reducer, args: args, atNanos: atNanos}
	return tok
}

// Cancel prevents a pending call from firing by removing it from the
// pending set. Returns false if tok is not currently pending, so calling
// it again is harmless. Nothing else is recorded: once removed, a
// cancelled token is indistinguishable from an erased one.
func (sc *Scheduler) Cancel(tok ScheduleToken) bool {
	if _, ok := sc.pending[tok]; !ok {
		return false
	}
	delete(sc.pending, tok)
	return true
}

// Erase removes a call's bookkeeping the same way Cancel does, without
// reporting whether the token was pending.
func (sc *Scheduler) Erase(tok ScheduleToken) {
	delete(sc.pending, tok)
}

// Pending returns the calls due to run at or before atNanos, in token
// order (oldest scheduled first).
func (sc *Scheduler) Pending(atNanos int64) []ScheduleToken {
	var out []ScheduleToken
	for tok, call := range sc.pending {
		if call.atNanos <= atNanos {
			out = append(out, tok)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Call returns the scheduled call for tok.
func (sc *Scheduler) Call(tok ScheduleToken) (ReducerID, []byte, bool) {
	call, ok := sc.pending[tok]
	if !ok {
		return 0, nil, false
	}
	return call.reducer, call.args, true
}
