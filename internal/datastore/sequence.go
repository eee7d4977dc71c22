package datastore

import (
	"math/big"

	"github.com/spacetimedb-go/core/internal/catalog"
	"github.com/spacetimedb-go/core/pkg/sats"
)

// sequenceBatchSize resolves the spec's Open Question on sequence
// allocation granularity: rather than recomputing the reservation window
// on every single insert, a mutable transaction reserves a batch of this
// many values up front (bounded by Max) and hands them out one at a time
// from local memory. Only the last value actually dispensed is persisted
// to the sequence's Allocated field at commit, so no value is ever
// skipped across transaction boundaries — the batch only amortizes the
// reservation-window bookkeeping within one transaction's lifetime, not
// a tradeoff against monotonicity.
const sequenceBatchSize = 128

// seqReservation tracks one sequence's local allocation state for the
// lifetime of a single MutTxId.
type seqReservation struct {
	next      *big.Int // next value to hand out
	reservedTo *big.Int // last value covered by the current batch (inclusive)
}

// nextSequenceValue hands out the next value of seq, reserving a new
// batch from the sequence's committed high-water mark when the local
// reservation is exhausted. Saturates at seq.Max per §4.4.
func (m *MutTxId) nextSequenceValue(seq *catalog.SequenceSchema) (*big.Int, error) {
	res, ok := m.seqLocal[seq.SequenceID]
	if !ok || res.next.Cmp(res.reservedTo) > 0 {
		base := seq.Allocated
		if v, ok := m.seqOut[seq.SequenceID]; ok {
			if b, ok := v.AsBig128(); ok {
				base = b
			}
		}
		start := new(big.Int).Add(base, seq.Increment)
		if start.Cmp(seq.Min) < 0 {
			start = new(big.Int).Set(seq.Min)
		}
		batchSpan := new(big.Int).Mul(big.NewInt(sequenceBatchSize), seq.Increment)
		reservedTo := new(big.Int).Add(start, batchSpan)
		if reservedTo.Cmp(seq.Max) > 0 {
			reservedTo = new(big.Int).Set(seq.Max)
		}
		if start.Cmp(seq.Max) > 0 {
			return nil, &SequenceExhaustedError{Sequence: seq.Name}
		}
		res = &seqReservation{next: start, reservedTo: reservedTo}
		m.seqLocal[seq.SequenceID] = res
	}
	val := new(big.Int).Set(res.next)
	res.next = new(big.Int).Add(res.next, seq.Increment)
	m.seqOut[seq.SequenceID] = ptrAlgebraicValue(sats.NewI128(new(big.Int).Set(val)))
	return val, nil
}

func ptrAlgebraicValue(v sats.AlgebraicValue) *sats.AlgebraicValue { return &v }

// valueFromBig converts a reserved sequence value into an AlgebraicValue
// of the column's declared integer kind.
func valueFromBig(kind sats.Kind, v *big.Int) sats.AlgebraicValue {
	switch kind {
	case sats.KindI8:
		return sats.NewI8(int8(v.Int64()))
	case sats.KindU8:
		return sats.NewU8(uint8(v.Uint64()))
	case sats.KindI16:
		return sats.NewI16(int16(v.Int64()))
	case sats.KindU16:
		return sats.NewU16(uint16(v.Uint64()))
	case sats.KindI32:
		return sats.NewI32(int32(v.Int64()))
	case sats.KindU32:
		return sats.NewU32(uint32(v.Uint64()))
	case sats.KindI64:
		return sats.NewI64(v.Int64())
	case sats.KindU64:
		return sats.NewU64(v.Uint64())
	case sats.KindI128:
		return sats.NewI128(new(big.Int).Set(v))
	case sats.KindU128:
		return sats.NewU128(new(big.Int).Set(v))
	default:
		return sats.NewI64(v.Int64())
	}
}

// CreateSequence registers a new sequence bound to (table, col), assigning
// it a fresh SequenceID. It is not visible to other transactions until
// commit.
func (m *MutTxId) CreateSequence(name string, table catalog.TableID, col catalog.ColID, start, min, max, increment *big.Int) (catalog.SequenceID, error) {
	m.requireOpen()
	for _, seq := range m.store.sequences {
		if seq.Name == name {
			return 0, ErrDuplicateName
		}
	}
	for _, seq := range m.newSeqs {
		if seq.Name == name {
			return 0, ErrDuplicateName
		}
	}
	id := catalog.SequenceID(m.store.nextSequenceID.Add(1))
	m.newSeqs[id] = &catalog.SequenceSchema{
		SequenceID: id,
		Name:       name,
		TableID:    table,
		ColID:      col,
		Increment:  increment,
		Start:      start,
		Min:        min,
		Max:        max,
		Allocated:  new(big.Int).Sub(start, increment),
	}
	return id, nil
}

// DropSequence removes a sequence. Dropping one that is still bound to a
// live autoinc column is a schema inconsistency the caller (DropTable's
// cascading cleanup) is responsible for avoiding; this method itself does
// not re-validate that, matching the minimal-surface DDL style of
// traits.rs's drop_sequence_mut_tx.
func (m *MutTxId) DropSequence(id catalog.SequenceID) error {
	m.requireOpen()
	if _, ok := m.newSeqs[id]; ok {
		delete(m.newSeqs, id)
		return nil
	}
	if _, ok := m.store.sequences[id]; ok {
		if m.droppedSeqs == nil {
			m.droppedSeqs = make(map[catalog.SequenceID]bool)
		}
		m.droppedSeqs[id] = true
		return nil
	}
	return ErrIndexNotFound
}

// SequenceIDFromName resolves a sequence's name to its ID.
func (m *MutTxId) SequenceIDFromName(name string) (catalog.SequenceID, error) {
	m.requireOpen()
	for _, seq := range m.newSeqs {
		if seq.Name == name {
			return seq.SequenceID, nil
		}
	}
	for _, seq := range m.store.sequences {
		if seq.Name == name {
			return seq.SequenceID, nil
		}
	}
	return 0, ErrIndexNotFound
}
