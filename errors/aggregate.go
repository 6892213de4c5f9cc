package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// FaultCollector accumulates independent validation failures (e.g. several
// BPB fields being simultaneously wrong) so a caller sees every problem in
// one report instead of only the first one checked.
type FaultCollector struct {
	err *multierror.Error
}

// Add records a fault. A nil err is ignored, so call sites can always call
// Add unconditionally.
func (c *FaultCollector) Add(err error) {
	if err == nil {
		return
	}
	c.err = multierror.Append(c.err, err)
}

// Err returns the aggregated error, or nil if nothing was recorded.
func (c *FaultCollector) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err.ErrorOrNil()
}

// Len reports how many faults have been recorded.
func (c *FaultCollector) Len() int {
	if c.err == nil {
		return 0
	}
	return c.err.Len()
}

// WrapPrimary returns primary (the first-priority status per spec §4.B,
// e.g. ErrNotBootSector) with the full aggregate attached as context, so
// the caller keeps a single discrete error code while the message carries
// every violated invariant.
func (c *FaultCollector) WrapPrimary(primary SDFatError) error {
	if c.Len() == 0 {
		return nil
	}
	return primary.WithMessage(fmt.Sprintf("%d invariant(s) violated: %s", c.Len(), c.Err().Error()))
}
