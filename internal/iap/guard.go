package iap

import (
	"strings"
	"sync"
)

// Execution environments the app can find itself in. Preview builds run
// inside a store client sandbox that has no native store layer at all.
const (
	ExecutionStandalone  = "standalone"
	ExecutionStoreClient = "storeclient"
	ExecutionPreview     = "preview"
)

// Guard answers, once per process, whether the native store gateway is
// usable. It depends only on the static execution-environment flag, never
// on a network or store call. This is a presence check, not a capability
// negotiation: there is no partial availability.
type Guard struct {
	env string

	once      sync.Once
	available bool
}

func NewGuard(executionEnv string) *Guard {
	return &Guard{env: executionEnv}
}

// Available reports whether the store gateway can be called. Memoized for
// the process lifetime.
func (g *Guard) Available() bool {
	g.once.Do(func() {
		switch strings.ToLower(strings.TrimSpace(g.env)) {
		case ExecutionStoreClient, ExecutionPreview:
			g.available = false
		default:
			// Unknown values count as a full build; the gateway itself
			// will fail loudly if that turns out wrong.
			g.available = true
		}
	})
	return g.available
}
