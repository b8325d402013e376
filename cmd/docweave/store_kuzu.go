//go:build cgo

package main

import "github.com/dusk-indust/docweave/internal/graph"

func openGraphStore(path string) (graph.Store, error) {
	s, err := graph.NewKuzuFileStore(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
