package framegraph

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrKindMismatch     = errors.New("texture/buffer kind mismatch")
	ErrUnsupported      = errors.New("unsupported feature")
	ErrNoSideEffects    = errors.New("no render pass has side effects")
	ErrCycle            = errors.New("frame graph has cycles")
	ErrLayoutMismatch   = errors.New("image layout mismatch")
	ErrUnknownUsageType = errors.New("unknown resource usage type")
	ErrNotBuilt         = errors.New("frame graph was not built")
	ErrOutOfOrder       = errors.New("resource read before it was produced")
)

// Error is returned by every failing Builder, Build and ComputeSchedule call.
// It names the operation that failed; the cause is reachable through errors.Is.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("framegraph: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// CycleError carries the DAG node path that closes a cycle. The first and
// last nodes of Cycle are the same.
type CycleError struct {
	Cycle []uint32
}

func (e *CycleError) Error() string {
	nodes := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		nodes[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(nodes, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// AsCycleError returns the CycleError in err's chain, or nil.
func AsCycleError(err error) *CycleError {
	var cerr *CycleError
	if errors.As(err, &cerr) {
		return cerr
	}
	return nil
}
