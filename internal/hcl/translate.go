package hcl

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/forge/internal/config"
)

// translateTarget converts an HCL target block into the agnostic model.
func translateTarget(tb *targetBlock) (*config.Target, error) {
	timeout, err := parseTimeout(tb.Timeout, "target", tb.Name)
	if err != nil {
		return nil, err
	}
	return &config.Target{
		Name:        tb.Name,
		Description: tb.Description,
		Outputs:     tb.Outputs,
		Prereqs:     tb.Prereqs,
		Commands:    tb.Commands,
		Sentinel:    tb.Sentinel,
		Always:      tb.Always,
		Timeout:     timeout,
	}, nil
}

// translatePhony converts a phony block into a target that produces no
// file and is always stale.
func translatePhony(pb *phonyBlock) (*config.Target, error) {
	timeout, err := parseTimeout(pb.Timeout, "phony", pb.Name)
	if err != nil {
		return nil, err
	}
	return &config.Target{
		Name:        pb.Name,
		Description: pb.Description,
		Prereqs:     pb.Prereqs,
		Commands:    pb.Commands,
		Phony:       true,
		Timeout:     timeout,
	}, nil
}

func parseTimeout(s, kind, name string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s '%s': invalid timeout %q: %w", kind, name, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s '%s': timeout must not be negative, got %s", kind, name, s)
	}
	return d, nil
}

// decodeAssignments evaluates every attribute of a variables/defaults
// block and merges the stringified values into dst. Expressions are
// evaluated without a variable scope: values are literals, and any
// ${NAME} engine references must be escaped as $${NAME}.
func decodeAssignments(block *varsBlock, file string, dst map[string]string) error {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("in %s: %w", file, diags)
	}

	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("in %s: evaluating variable '%s': %w", file, name, diags)
		}
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("in %s: variable '%s' is not convertible to a string: %w", file, name, err)
		}
		if strVal.IsNull() {
			return fmt.Errorf("in %s: variable '%s' must not be null", file, name)
		}
		dst[name] = strVal.AsString()
	}
	return nil
}
