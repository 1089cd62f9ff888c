// Copyright 2025, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/gaspricer/blob/master/LICENSE.md

package pricer

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when a mutating call fails the access check.
// The call has no effect and emits no audit event.
var ErrUnauthorized = errors.New("caller is not authorized")

// InvalidConstraintError rejects a constraint-set replacement. The previous
// set is left untouched.
type InvalidConstraintError struct {
	Index  int
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid constraint %v: %s", e.Index, e.Reason)
}

func invalidConstraint(index int, format string, args ...any) *InvalidConstraintError {
	return &InvalidConstraintError{
		Index:  index,
		Reason: fmt.Sprintf(format, args...),
	}
}
