// Package script is the interpreter host: the bridge between an embedded
// scripting runtime (treated here as a black box) and the native
// ResourceList. It owns the typed registration ABI (add_file,
// add_directory, ...), the scripted-callable GC pinning protocol, and a
// reference Go-native builder DSL that stands in for the embedded
// language's shim classes.
package script

import (
	"fmt"
	"sync"

	"github.com/ratazzi/hola/resource"
)

// Interpreter is the native side's view of the embedded scripting runtime.
// A real binding (Ruby, JS, ...) implements this against its own GC and
// callable representation; NativeInterpreter is the Go-closure reference
// implementation used by this repository's own recipes and tests.
type Interpreter interface {
	// InvokeGuard runs a scripted only_if/not_if callable and interprets its
	// return value as boolean-truthy. Invoked synchronously on the calling
	// (main) goroutine — guard evaluation suspends no scheduling.
	InvokeGuard(h resource.Callable) (bool, error)

	// InvokeBlock runs a scripted ruby_block callable body. Like
	// InvokeGuard, always invoked on the main goroutine; driver code must
	// never call this from a worker thread.
	InvokeBlock(h resource.Callable) error

	// Pin registers h with the interpreter's GC so it survives, pinned
	// against collection, for the lifetime of the recipe run, until
	// Unpin is called.
	Pin(h resource.Callable)

	// Unpin releases a handle pinned by Pin. Called from record
	// destruction at recipe teardown.
	Unpin(h resource.Callable)
}

// NativeInterpreter is the in-process reference Interpreter: its callables
// are plain Go closures (GuardFunc/BlockFunc), wrapped in a pinnedCallable so
// Pin/Unpin have something to refcount. There is no real garbage collector
// to protect against here, but the refcounting protocol is kept so that a
// future FFI-backed Interpreter can be swapped in without changing any
// caller.
type NativeInterpreter struct {
	mu     sync.Mutex
	pinned map[*pinnedCallable]int
}

// GuardFunc is the Go-native shape of an only_if/not_if scripted callable.
type GuardFunc func() (bool, error)

// BlockFunc is the Go-native shape of a ruby_block scripted callable.
type BlockFunc func() error

type pinnedCallable struct {
	guard GuardFunc
	block BlockFunc
}

// NewNativeInterpreter returns a ready-to-use NativeInterpreter.
func NewNativeInterpreter() *NativeInterpreter {
	return &NativeInterpreter{pinned: make(map[*pinnedCallable]int)}
}

// Guard wraps fn as a resource.Callable usable for only_if/not_if.
func (in *NativeInterpreter) Guard(fn GuardFunc) resource.Callable {
	return &pinnedCallable{guard: fn}
}

// Block wraps fn as a resource.Callable usable for a ruby_block body.
func (in *NativeInterpreter) Block(fn BlockFunc) resource.Callable {
	return &pinnedCallable{block: fn}
}

func (in *NativeInterpreter) InvokeGuard(h resource.Callable) (bool, error) {
	pc, ok := h.(*pinnedCallable)
	if !ok || pc.guard == nil {
		return false, fmt.Errorf("script: handle is not a guard callable")
	}
	return pc.guard()
}

func (in *NativeInterpreter) InvokeBlock(h resource.Callable) error {
	pc, ok := h.(*pinnedCallable)
	if !ok || pc.block == nil {
		return fmt.Errorf("script: handle is not a block callable")
	}
	return pc.block()
}

func (in *NativeInterpreter) Pin(h resource.Callable) {
	pc, ok := h.(*pinnedCallable)
	if !ok {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pinned[pc]++
}

func (in *NativeInterpreter) Unpin(h resource.Callable) {
	pc, ok := h.(*pinnedCallable)
	if !ok {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pinned[pc] <= 1 {
		delete(in.pinned, pc)
		return
	}
	in.pinned[pc]--
}

// PinnedCount reports how many distinct callables are currently pinned,
// exposed for tests asserting teardown actually unpins everything.
func (in *NativeInterpreter) PinnedCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pinned)
}
