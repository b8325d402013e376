//go:build e2e && cgo

package e2e

import (
	"testing"

	"github.com/dusk-indust/docweave/internal/graph"
	"github.com/stretchr/testify/require"
)

func init() {
	storeFactories = append(storeFactories, storeFactory{
		name: "kuzu",
		open: func(t *testing.T) graph.Store {
			s, err := graph.NewKuzuStore()
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	})
}
