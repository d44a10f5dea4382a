package leave

import "fmt"

type Operation string

const (
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
	OpCancel  Operation = "cancel"
)

func operationFor(decision Decision) Operation {
	if decision == DecisionRejected {
		return OpReject
	}
	return OpApprove
}

// CheckTransition reports whether op may be attempted on a request in status.
// Who may perform it is decided by the caller.
func CheckTransition(status Status, op Operation) error {
	switch status {
	case StatusPending:
		switch op {
		case OpApprove, OpReject, OpCancel:
			return nil
		}
		return fmt.Errorf("%w: unknown operation %q", ErrValidation, op)
	default:
		return &TransitionError{Status: status, Op: op}
	}
}

func statusFor(decision Decision) Status {
	if decision == DecisionRejected {
		return StatusRejected
	}
	return StatusApproved
}
