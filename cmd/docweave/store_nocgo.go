//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/docweave/internal/graph"
)

func openGraphStore(string) (graph.Store, error) {
	return nil, errors.New("docweave was built without cgo; the Kuzu graph store is unavailable")
}
