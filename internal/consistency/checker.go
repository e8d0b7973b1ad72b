// Package consistency cross-checks a resolved constant table against the
// mathematical identities its default literals satisfy. Overrides that break
// an identity are reported, never rejected.
package consistency

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/thalib/xfields/internal/config"
	"github.com/thalib/xfields/internal/constants"
	"github.com/thalib/xfields/internal/logging"
	"github.com/thalib/xfields/internal/table"
)

// IssueType represents the type of consistency issue
type IssueType string

const (
	// IssueIdentity indicates that two expressions which should agree do not.
	IssueIdentity IssueType = "identity"

	// IssueNonFinite indicates a NaN or infinite value.
	IssueNonFinite IssueType = "non_finite"
)

// Issue represents a detected consistency issue
type Issue struct {
	Type        IssueType        `json:"type" yaml:"type"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Constants   []constants.Name `json:"constants,omitempty" yaml:"constants,omitempty"`
	Got         float64          `json:"got" yaml:"got"`
	Want        float64          `json:"want" yaml:"want"`
}

// CheckResult contains the results of a consistency check
type CheckResult struct {
	TableID    string        `json:"table_id" yaml:"table_id"`
	Consistent bool          `json:"consistent" yaml:"consistent"`
	Checked    int           `json:"checked" yaml:"checked"`
	Issues     []Issue       `json:"issues" yaml:"issues"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	TimedOut   bool          `json:"timed_out" yaml:"timed_out"`
}

// Identity is a relation between table values that holds for the defaults.
type Identity struct {
	Name      string
	Constants []constants.Name
	Eval      func(v table.Values) (got, want float64)
}

// Identities lists the checks run by Check.
var Identities = []Identity{
	{
		Name:      "DEG2RAD*RAD2DEG=1",
		Constants: []constants.Name{constants.NameDeg2Rad, constants.NameRad2Deg},
		Eval: func(v table.Values) (float64, float64) {
			return v.Deg2Rad * v.Rad2Deg, 1
		},
	},
	{
		Name:      "SQRT_PI^2=PI",
		Constants: []constants.Name{constants.NameSqrtPi, constants.NamePi},
		Eval: func(v table.Values) (float64, float64) {
			return v.SqrtPi * v.SqrtPi, v.Pi
		},
	},
	{
		Name:      "TWO_OVER_SQRT_PI*SQRT_PI=2",
		Constants: []constants.Name{constants.NameTwoOverSqrtPi, constants.NameSqrtPi},
		Eval: func(v table.Values) (float64, float64) {
			return v.TwoOverSqrtPi * v.SqrtPi, 2
		},
	},
	{
		Name:      "SQRT_TWO^2=2",
		Constants: []constants.Name{constants.NameSqrtTwo},
		Eval: func(v table.Values) (float64, float64) {
			return v.SqrtTwo * v.SqrtTwo, 2
		},
	},
	{
		Name:      "DEG2RAD*180=PI",
		Constants: []constants.Name{constants.NameDeg2Rad, constants.NamePi},
		Eval: func(v table.Values) (float64, float64) {
			return v.Deg2Rad * 180, v.Pi
		},
	},
}

// Checker runs identity checks on resolved tables.
type Checker struct {
	config *config.CheckConfig
	logger *logging.Logger
}

// NewChecker creates a new consistency checker
func NewChecker(cfg *config.CheckConfig) *Checker {
	if cfg == nil {
		cfg = &config.CheckConfig{
			Tolerance: config.Defaults.Check.Tolerance,
			Timeout:   config.Defaults.Check.Timeout,
		}
	}
	return &Checker{config: cfg, logger: logging.Nop()}
}

// WithLogger sets the logger.
func (c *Checker) WithLogger(logger *logging.Logger) *Checker {
	c.logger = logger
	return c
}

// Check runs every identity against t. A broken identity is an issue in the
// result, not an error. The error is non-nil only when ctx ends first.
func (c *Checker) Check(ctx context.Context, t *table.Table) (*CheckResult, error) {
	start := time.Now()

	timeout := time.Duration(c.config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.Defaults.Check.Timeout) * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &CheckResult{
		TableID:    t.ID(),
		Consistent: true,
		Issues:     []Issue{},
	}

	for _, e := range t.Entries() {
		if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			result.Issues = append(result.Issues, Issue{
				Type:        IssueNonFinite,
				Name:        string(e.Name),
				Description: fmt.Sprintf("%s is not finite (%s)", e.Name, e.Origin),
				Constants:   []constants.Name{e.Name},
				Got:         e.Value,
				Want:        e.Default,
			})
			result.Consistent = false
		}
	}

	values := t.Values()
	for _, id := range Identities {
		if err := checkCtx.Err(); err != nil {
			result.TimedOut = stderrors.Is(err, context.DeadlineExceeded)
			result.Duration = time.Since(start)
			return result, fmt.Errorf("consistency check interrupted after %d checks: %w", result.Checked, err)
		}

		got, want := id.Eval(values)
		result.Checked++
		if math.Abs(got-want) <= c.config.Tolerance {
			continue
		}

		result.Issues = append(result.Issues, Issue{
			Type:        IssueIdentity,
			Name:        id.Name,
			Description: fmt.Sprintf("%s off by %g (tolerance %g)", id.Name, got-want, c.config.Tolerance),
			Constants:   id.Constants,
			Got:         got,
			Want:        want,
		})
		result.Consistent = false
		c.logger.Warnf("Consistency issue: %s got %v want %v", id.Name, got, want)
	}

	result.Duration = time.Since(start)
	return result, nil
}
