package abihost

import (
	"fmt"

	"github.com/spacetimedb-go/core/internal/wasm"
)

// memoryGuard is the one choke point every ABI function's guest-memory
// access goes through (module.go's read/write helpers call readMemory/
// writeMemory, never wasm.Runtime's raw ReadFromMemory/WriteToMemoryAt
// directly). It composes the teacher's bounds checker, pointer manager,
// safety manager and debugger (internal/wasm's bounds.go/pointer.go/
// safety.go/debug.go) — previously each fully implemented but never
// referenced outside internal/wasm itself — into the guest/host memory
// boundary this package owns.
type memoryGuard struct {
	bounds   *wasm.BoundsChecker
	pointers *wasm.PointerManager
	safety   *wasm.MemorySafetyManager
	debug    *wasm.MemoryDebugger
}

func newMemoryGuard(rt *wasm.Runtime) *memoryGuard {
	return &memoryGuard{
		bounds:   wasm.NewBoundsChecker(rt),
		pointers: wasm.NewPointerManager(rt),
		safety:   wasm.NewMemorySafetyManager(rt, wasm.SafetyStandard),
		debug:    wasm.NewMemoryDebugger(rt, wasm.DebugWarn),
	}
}

// refreshGuestRegion (re-)registers [0, size) as the one pointer the
// guest's entire linear memory validates against. WASM memory only
// grows, never shrinks, so this only needs to run once per instantiation
// and again whenever a reducer call might have grown it.
func (g *memoryGuard) refreshGuestRegion(size uint32) {
	g.pointers.ReleasePointer(0) // no-op if nothing is registered yet
	g.pointers.CreatePointer(0, size, false, "guest-memory")
}

// checkRead/checkWrite run the bounds, pointer and safety layers before
// module.go touches guest linear memory, logging a diagnostic on the
// first layer that rejects the access.
func (g *memoryGuard) checkRead(address, size uint32) error  { return g.check(address, size, false, "read") }
func (g *memoryGuard) checkWrite(address, size uint32) error { return g.check(address, size, true, "write") }

func (g *memoryGuard) check(address, size uint32, write bool, operation string) error {
	if err := g.bounds.CheckBounds(address, size, operation); err != nil {
		g.logViolation(operation, address, size, err)
		return err
	}
	if err := g.pointers.ValidatePointer(address, size, write); err != nil {
		g.logViolation(operation, address, size, err)
		return err
	}
	if err := g.safety.ValidateAccess(address, size, operation); err != nil {
		g.logViolation(operation, address, size, err)
		return err
	}
	return nil
}

func (g *memoryGuard) logViolation(operation string, address, size uint32, err error) {
	g.debug.Log(wasm.DebugError, fmt.Sprintf("memory guard rejected guest %s", operation), map[string]interface{}{
		"address": address,
		"size":    size,
		"error":   err.Error(),
	})
}
