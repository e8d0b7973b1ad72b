package table

import (
	"context"
	"fmt"

	"github.com/thalib/xfields/internal/constants"
)

var global = NewResolver(BuildSource())

// Define supplies a process-wide value for name. It must run before the
// first call to Global or ResolveGlobal.
func Define(name constants.Name, value float64) error {
	return global.Define(name, value)
}

// ResolveGlobal resolves the process-wide table, consulting extra sources
// ahead of the link-time overrides. Once the table exists the sources are
// ignored and the existing table is returned.
func ResolveGlobal(ctx context.Context, sources ...Source) (*Table, error) {
	global.mu.Lock()
	if global.resolved == nil && len(sources) > 0 {
		global.sources = append(append([]Source(nil), sources...), global.sources...)
	}
	global.mu.Unlock()

	return global.Resolve(ctx)
}

// Global returns the process-wide table, resolving it on first use. It
// panics if the link-time overrides are malformed, since no sensible table
// exists for such a binary.
func Global() *Table {
	t, err := global.Resolve(context.Background())
	if err != nil {
		panic(fmt.Sprintf("constant table: %v", err))
	}
	return t
}
