package table

import (
	"context"
	"fmt"
)

// buildOverrides is injected at link time to override constants for a
// whole binary:
//
//	go build -ldflags "-X github.com/thalib/xfields/internal/table.buildOverrides=QELEM=1.0,C_LIGHT=3e8"
var buildOverrides string

type buildSource struct {
	raw string
}

// BuildSource returns the source holding link-time overrides.
func BuildSource() Source {
	return buildSource{raw: buildOverrides}
}

func (s buildSource) Origin() Origin {
	return OriginBuild
}

func (s buildSource) Overrides(ctx context.Context) (Overrides, error) {
	overrides, err := ParseOverrides(s.raw)
	if err != nil {
		return nil, fmt.Errorf("malformed link-time overrides %q: %w", s.raw, err)
	}
	return overrides, nil
}
