package transport

import (
	"errors"
	"sync"
)

// Init and Shutdown model the process-wide Platform/ProxyStub
// resource spec.md §9 describes: acquired once before any Channel is
// constructed, released once after every Channel has been destroyed.
// Concrete Transport implementations that need global state (TLS
// providers, certificate stores) should check Initialized() rather
// than performing their own global init.

var (
	mu          sync.Mutex
	initialized bool
)

// ErrNotInitialized is returned by a Transport's Connect if Init has
// not been called for the process.
var ErrNotInitialized = errors.New("transport: Init has not been called")

// Init acquires the process-wide transport resource. Calling it more
// than once without an intervening Shutdown is a no-op.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	initialized = true
	return nil
}

// Shutdown releases the process-wide transport resource. Safe to call
// even if Init was never called.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
}

// Initialized reports whether Init has been called without a
// subsequent Shutdown.
func Initialized() bool {
	mu.Lock()
	defer mu.Unlock()
	return initialized
}
