// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "fmt"

// InvalidInputError reports a per-frame sample that cannot be used:
// a non-finite or non-unit quaternion, or a non-finite angular rate.
// Nothing is substituted; the caller decides whether to skip the frame.
type InvalidInputError struct {
	Field  string // e.g. "thigh", "gyro"
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// CheckQuaternion wraps Validate into an *InvalidInputError naming field.
func CheckQuaternion(field string, q Quaternion) error {
	if err := q.Validate(); err != nil {
		return &InvalidInputError{Field: field, Reason: err.Error()}
	}
	return nil
}
