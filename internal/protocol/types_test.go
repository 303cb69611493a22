// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"errors"
	"testing"
)

func TestOperationValidate(t *testing.T) {
	t.Parallel()

	for _, op := range Operations() {
		if err := op.Validate(); err != nil {
			t.Errorf("Operation(%q).Validate() error = %v", op, err)
		}
	}

	for _, op := range []Operation{"", "values()", "GET", "exposed_get", "delete"} {
		err := op.Validate()
		if !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Operation(%q).Validate() error = %v, want ErrInvalidOperation", op, err)
			continue
		}
		var opErr *InvalidOperationError
		if !errors.As(err, &opErr) || opErr.Value != op {
			t.Errorf("Operation(%q).Validate() error = %#v", op, err)
		}
	}
}

func TestOperationNeedsKey(t *testing.T) {
	t.Parallel()

	tests := map[Operation]bool{
		OpGet: true, OpSet: true,
		OpLen: false, OpKeys: false, OpValues: false, OpItems: false,
		OpPause: false, OpResume: false, OpStatus: false, OpInfo: false,
	}
	for op, want := range tests {
		if got := op.NeedsKey(); got != want {
			t.Errorf("Operation(%q).NeedsKey() = %v, want %v", op, got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := Errorf(CodeNoController, "no controller exposed by %s", "trainer")
	if got, want := err.Error(), "no_controller: no controller exposed by trainer"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
