package table

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/thalib/xfields/internal/constants"
	xerrors "github.com/thalib/xfields/internal/errors"
)

// Origin records where a resolved value came from.
type Origin string

const (
	OriginDefault  Origin = "default"
	OriginCaller   Origin = "caller"
	OriginSnapshot Origin = "snapshot"
	OriginEnv      Origin = "env"
	OriginConfig   Origin = "config"
	OriginCatalog  Origin = "catalog"
	OriginBuild    Origin = "build"
)

// Overrides maps constant names to caller-supplied values.
type Overrides map[constants.Name]float64

// Validate returns an UNKNOWN_CONSTANT error for the first name, in sorted
// order, that is not part of the table.
func (o Overrides) Validate() error {
	for _, name := range o.sortedNames() {
		if !name.Valid() {
			return xerrors.NewUnknownConstantError(string(name))
		}
	}
	return nil
}

func (o Overrides) sortedNames() []constants.Name {
	names := make([]constants.Name, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Source supplies overrides during resolution.
type Source interface {
	// Origin labels the values this source defines.
	Origin() Origin

	// Overrides returns the values this source would define.
	Overrides(ctx context.Context) (Overrides, error)
}

// StaticSource is a Source backed by a fixed map.
type StaticSource struct {
	origin    Origin
	overrides Overrides
}

// NewStaticSource creates a source that always returns overrides, labelled
// with origin.
func NewStaticSource(origin Origin, overrides Overrides) *StaticSource {
	cp := make(Overrides, len(overrides))
	for k, v := range overrides {
		cp[k] = v
	}
	return &StaticSource{origin: origin, overrides: cp}
}

// Origin implements Source.
func (s *StaticSource) Origin() Origin {
	return s.origin
}

// Overrides implements Source.
func (s *StaticSource) Overrides(ctx context.Context) (Overrides, error) {
	return s.overrides, nil
}

// ParseValue converts a raw override value (string, int or float, as
// delivered by flags, YAML or the environment) to a float64.
func ParseValue(name constants.Name, raw any) (float64, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, xerrors.NewInvalidValueError(string(name), raw, fmt.Errorf("empty value"))
		}
		raw = s
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, xerrors.NewInvalidValueError(string(name), raw, err)
	}
	return v, nil
}

// ParseAssignment parses a single NAME=VALUE pair.
func ParseAssignment(s string) (constants.Name, float64, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, xerrors.New(xerrors.CodeInvalidValue, fmt.Sprintf("expected NAME=VALUE, got %q", s))
	}
	name, err := constants.ParseName(key)
	if err != nil {
		return "", 0, xerrors.NewUnknownConstantError(strings.TrimSpace(key)).Wrap(err)
	}
	value, err := ParseValue(name, raw)
	if err != nil {
		return "", 0, err
	}
	return name, value, nil
}

// ParseOverrides parses a comma separated list of NAME=VALUE pairs. Empty
// elements are skipped. A name that appears twice keeps its first value.
func ParseOverrides(s string) (Overrides, error) {
	out := Overrides{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, value, err := ParseAssignment(part)
		if err != nil {
			return nil, err
		}
		if _, seen := out[name]; !seen {
			out[name] = value
		}
	}
	return out, nil
}

// ParseMap converts a loosely typed map, such as a config section, into
// Overrides. Keys are matched case-insensitively.
func ParseMap(m map[string]any) (Overrides, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Overrides, len(m))
	for _, k := range keys {
		name, err := constants.ParseName(k)
		if err != nil {
			return nil, xerrors.NewUnknownConstantError(k).Wrap(err)
		}
		value, err := ParseValue(name, m[k])
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}
