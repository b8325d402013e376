//go:build e2e

package e2e

import (
	"testing"

	"github.com/dusk-indust/docweave/internal/graph"
)

// storeFactory opens an empty graph store for one test.
type storeFactory struct {
	name string
	open func(t *testing.T) graph.Store
}

// storeFactories lists the backends every end-to-end test runs against.
// Backends that need cgo register themselves from their own file.
var storeFactories = []storeFactory{
	{name: "mem", open: func(*testing.T) graph.Store { return graph.NewMemStore() }},
}
