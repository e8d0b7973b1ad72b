package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thalib/xfields/internal/constants"
	xerrors "github.com/thalib/xfields/internal/errors"
	"github.com/thalib/xfields/internal/logging"
	"github.com/thalib/xfields/internal/ulid"
)

// Resolver builds a Table from caller definitions and an ordered list of
// sources. Resolution happens once; later calls return the same Table.
type Resolver struct {
	mu       sync.Mutex
	defined  Overrides
	sources  []Source
	logger   *logging.Logger
	now      func() time.Time
	resolved *Table
}

// NewResolver creates a resolver that consults sources in the given order
// after the caller's own definitions.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{
		defined: Overrides{},
		sources: append([]Source(nil), sources...),
		now:     time.Now,
	}
}

// WithLogger sets the logger used to report applied overrides.
func (r *Resolver) WithLogger(logger *logging.Logger) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	return r
}

// Define supplies a caller value for name. The first definition of a name
// wins; redefining it is accepted and ignored. Defining after resolution
// fails with ALREADY_RESOLVED.
func (r *Resolver) Define(name constants.Name, value float64) error {
	if !name.Valid() {
		return xerrors.NewUnknownConstantError(string(name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return xerrors.NewAlreadyResolvedError(string(name))
	}
	if _, ok := r.defined[name]; !ok {
		r.defined[name] = value
	}
	return nil
}

// DefineAll calls Define for every entry, in name order.
func (r *Resolver) DefineAll(overrides Overrides) error {
	for _, name := range overrides.sortedNames() {
		if err := r.Define(name, overrides[name]); err != nil {
			return err
		}
	}
	return nil
}

// Defined reports whether the caller has defined name.
func (r *Resolver) Defined(name constants.Name) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.defined[name]
	return ok
}

// AddSource appends a source with lower precedence than those already
// registered.
func (r *Resolver) AddSource(src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return xerrors.ErrAlreadyResolved
	}
	r.sources = append(r.sources, src)
	return nil
}

// Resolved reports whether Resolve has completed successfully.
func (r *Resolver) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved != nil
}

// Resolve produces the table. A failing source aborts resolution without
// freezing the resolver, so the caller may fix the input and retry.
func (r *Resolver) Resolve(ctx context.Context) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return r.resolved, nil
	}

	values := Defaults()
	var origins [constants.Count]Origin
	for i := range origins {
		origins[i] = OriginDefault
	}

	apply := func(origin Origin, overrides Overrides) {
		for _, name := range overrides.sortedNames() {
			i := constants.Index(name)
			if origins[i] != OriginDefault {
				continue
			}
			values.set(name, overrides[name])
			origins[i] = origin
			if r.logger != nil {
				r.logger.WithFields(map[string]any{
					"constant": string(name),
					"origin":   string(origin),
				}).Debugf("Override applied: %s = %g", name, overrides[name])
			}
		}
	}

	apply(OriginCaller, r.defined)

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		overrides, err := src.Overrides(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s overrides: %w", src.Origin(), err)
		}
		if err := overrides.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s overrides: %w", src.Origin(), err)
		}
		apply(src.Origin(), overrides)
	}

	now := r.now()
	r.resolved = &Table{
		id:         ulid.GenerateWithTime(now),
		resolvedAt: now,
		values:     values,
		origins:    origins,
	}

	if r.logger != nil {
		r.logger.Infof("Constant table %s resolved (%d overridden)", r.resolved.id, len(r.resolved.Overridden()))
	}

	return r.resolved, nil
}

// New resolves a table from an explicit set of caller overrides. Names not
// in overrides take their defaults.
func New(overrides Overrides) (*Table, error) {
	r := NewResolver()
	if err := r.DefineAll(overrides); err != nil {
		return nil, err
	}
	return r.Resolve(context.Background())
}

// Default returns a table with every constant at its default value.
func Default() *Table {
	t, _ := New(nil)
	return t
}
