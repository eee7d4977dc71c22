// Package abihost wires wazero's wasm.Runtime (internal/wasm) to the
// real internal/datastore, exporting the "spacetime_10.0" module ABI
// (§4.6) a compiled reducer module imports. It replaces the teacher's
// internal/db map-of-raw-bytes stub: every ABI function below operates
// on a live *datastore.MutTxId instead of an in-memory byte-keyed map.
package abihost

import (
	"context"
	"fmt"
	"sync"

	"github.com/spacetimedb-go/core/internal/config"
	"github.com/spacetimedb-go/core/internal/datastore"
	"github.com/spacetimedb-go/core/internal/obslog"
	"github.com/spacetimedb-go/core/internal/wasm"
)

// rowIter is the host-side cursor backing row_iter_bsatn_advance/close.
// One row is streamed per advance call — a simplification against the
// real ABI's multi-row-per-buffer contract, documented in DESIGN.md,
// matching the teacher's own rowIterBsatnAdvance shape (internal/wasm's
// former spacetime.go) which also advanced one encoded row at a time.
//
// Each encoded row's backing array is drawn from the Host's
// wasm.MemoryManager pool (internal/wasm's memory.go) rather than a
// plain make([]byte, ...): a table/index scan is the one ABI path that
// allocates one buffer per row, so it is the genuine beneficiary of
// the pool's size-classed reuse. release returns every row buffer to
// the pool when the guest closes the iterator; draining it does not.
type rowIter struct {
	encoded [][]byte
	pos     int
	mem     *wasm.MemoryManager
}

func (it *rowIter) next() ([]byte, bool) {
	if it.pos >= len(it.encoded) {
		return nil, false
	}
	row := it.encoded[it.pos]
	it.pos++
	return row, true
}

func (it *rowIter) release() {
	if it.mem == nil {
		return
	}
	for _, row := range it.encoded {
		it.mem.DeallocateBuffer(row)
	}
	it.encoded = nil
}

// Host owns the wazero lifecycle (via wasm.Runtime), the datastore, and
// the per-call scratch state (row iterators, the scheduler) the ABI
// functions in module.go close over.
type Host struct {
	runtime *wasm.Runtime
	store   *datastore.Store
	cfg     *config.Store
	log     *obslog.Logger
	sched   *datastore.Scheduler
	guard   *memoryGuard
	mem     *wasm.MemoryManager

	mu    sync.Mutex
	tx    *datastore.MutTxId // active mutable transaction, nil between calls
	iters map[uint32]*rowIter
	nextIterID uint32
}

// NewHost boots a wazero runtime, attaches the spacetime_10.0 host
// module against store, and returns a Host ready to load a guest module.
func NewHost(store *datastore.Store, cfg *config.Store, log *obslog.Logger) (*Host, error) {
	wasmCfg := wasm.DefaultConfig()
	wasmCfg.MemoryLimit = cfg.MemoryLimitPages
	rt, err := wasm.NewRuntime(wasmCfg)
	if err != nil {
		return nil, fmt.Errorf("abihost: starting wazero runtime: %w", err)
	}

	h := &Host{
		runtime: rt,
		store:   store,
		cfg:     cfg,
		log:     log,
		sched:   datastore.NewScheduler(),
		guard:   newMemoryGuard(rt),
		mem:     wasm.NewMemoryManager(rt, wasm.DefaultMemoryConfig()),
		iters:   make(map[uint32]*rowIter),
	}
	if err := newSpacetimeModule(h).instantiate(context.Background(), rt.Runtime); err != nil {
		rt.Close(context.Background())
		return nil, fmt.Errorf("abihost: instantiating spacetime_10.0 host module: %w", err)
	}
	return h, nil
}

// LoadModule compiles and instantiates a guest WASM module against the
// already-attached spacetime_10.0 host module.
func (h *Host) LoadModule(ctx context.Context, wasmBytes []byte, name string) error {
	if err := h.runtime.LoadModule(ctx, wasmBytes); err != nil {
		return err
	}
	if err := h.runtime.InstantiateModule(ctx, name, true); err != nil {
		return err
	}
	h.refreshGuard()
	return nil
}

// refreshGuard re-registers the guest's current linear memory extent
// with h.guard's pointer manager. WASM memory only grows, so this only
// needs to run after instantiation and at the start of each reducer call.
func (h *Host) refreshGuard() {
	stats, err := h.runtime.GetMemoryStats()
	if err != nil {
		return
	}
	h.guard.refreshGuestRegion(stats.Size)
}

// readMemory/writeMemory are the only way abihost's ABI functions touch
// guest linear memory — every call passes through h.guard's bounds/
// pointer/safety checks first (see memsafety.go).
func (h *Host) readMemory(ptr, size uint32) ([]byte, error) {
	if err := h.guard.checkRead(ptr, size); err != nil {
		return nil, err
	}
	return h.runtime.ReadFromMemory(ptr, size)
}

func (h *Host) writeMemory(ptr uint32, data []byte) error {
	if err := h.guard.checkWrite(ptr, uint32(len(data))); err != nil {
		return err
	}
	return h.runtime.WriteToMemoryAt(ptr, data)
}

// CallReducer begins a mutable transaction, invokes the guest's
// __call_reducer__ export, and commits on success or rolls back on
// failure — the single-writer discipline of §5 applied at the ABI
// boundary, not left to the guest to manage.
func (h *Host) CallReducer(ctx context.Context, reducerID uint32, senderIdentity [4]uint64, connectionID [2]uint64, timestamp uint64, args []byte) (string, error) {
	h.refreshGuard()

	h.mu.Lock()
	h.tx = h.store.BeginMutTx()
	h.mu.Unlock()

	errMsg, callErr := h.runtime.CallReducer(ctx, reducerID, senderIdentity, connectionID, timestamp, args)

	h.mu.Lock()
	tx := h.tx
	h.tx = nil
	h.iters = make(map[uint32]*rowIter)
	h.mu.Unlock()

	if callErr != nil || errMsg != "" {
		tx.RollbackMutTx()
		return errMsg, callErr
	}
	if _, err := tx.CommitMutTx(); err != nil {
		return "", fmt.Errorf("abihost: commit failed: %w", err)
	}
	return "", nil
}

// Close releases the wazero runtime and the scan row-buffer pool.
func (h *Host) Close(ctx context.Context) error {
	h.mem.Cleanup()
	return h.runtime.Close(ctx)
}

// currentTx returns the active transaction or an error if called outside
// a reducer invocation (ErrnoNotInTransaction, §4.6).
func (h *Host) currentTx() (*datastore.MutTxId, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tx == nil {
		return nil, ErrnoNotInTransaction
	}
	return h.tx, nil
}

func (h *Host) registerIter(it *rowIter) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextIterID++
	id := h.nextIterID
	h.iters[id] = it
	return id
}

func (h *Host) getIter(id uint32) (*rowIter, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	it, ok := h.iters[id]
	return it, ok
}

func (h *Host) closeIter(id uint32) {
	h.mu.Lock()
	it, ok := h.iters[id]
	delete(h.iters, id)
	h.mu.Unlock()
	if ok {
		it.release()
	}
}
