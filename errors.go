package coresim

// errors.go holds the contract-violation errors raised by the task state machine
// and by node connection management.  None of these are recoverable: the scheduler
// stops the run as soon as one is returned.

import (
	"fmt"

	"github.com/pkg/errors"
)

// ViolationKind identifies which part of the contract was broken
type ViolationKind int

const (
	InvalidStateAdvance ViolationKind = iota
	ResourceDisciplineViolation
	InvalidStatePromotion
)

var kindToStr = map[ViolationKind]string{
	InvalidStateAdvance:         "invalid state advance",
	ResourceDisciplineViolation: "resource discipline violation",
	InvalidStatePromotion:       "invalid state promotion",
}

func (vk ViolationKind) String() string {
	str, present := kindToStr[vk]
	if !present {
		return fmt.Sprintf("ViolationKind(%d)", int(vk))
	}
	return str
}

// sentinels, one per kind, for use with errors.Is
var (
	ErrInvalidStateAdvance   = errors.New(InvalidStateAdvance.String())
	ErrResourceDiscipline    = errors.New(ResourceDisciplineViolation.String())
	ErrInvalidStatePromotion = errors.New(InvalidStatePromotion.String())
)

// ContractViolation reports a call made in a state the caller should never produce
type ContractViolation struct {
	Kind   ViolationKind
	TaskID int
	State  TaskState
	Reason string
}

func (cv *ContractViolation) Error() string {
	return fmt.Sprintf("%s: task %d in state %s: %s", cv.Kind, cv.TaskID, cv.State, cv.Reason)
}

// Is lets errors.Is match a ContractViolation against the sentinel of its kind
func (cv *ContractViolation) Is(target error) bool {
	switch cv.Kind {
	case InvalidStateAdvance:
		return target == ErrInvalidStateAdvance
	case ResourceDisciplineViolation:
		return target == ErrResourceDiscipline
	case InvalidStatePromotion:
		return target == ErrInvalidStatePromotion
	}
	return false
}

func violation(kind ViolationKind, task *Task, reason string) error {
	return &ContractViolation{Kind: kind, TaskID: task.ID(), State: task.State(), Reason: reason}
}

// IsContractViolation reports whether err (or anything it wraps) is a ContractViolation
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}
