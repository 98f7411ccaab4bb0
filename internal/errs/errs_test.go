package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "bare sentinel", err: ErrNoPosition, want: "NO_POSITION"},
		{name: "wrapped", err: fmt.Errorf("%w: cash 10 < cost 20", ErrInsufficientFunds), want: "INSUFFICIENT_FUNDS"},
		{name: "double wrapped", err: fmt.Errorf("enter pair: %w", fmt.Errorf("%w: MU", ErrPositionConflict)), want: "POSITION_CONFLICT"},
		{name: "unclassified", err: context.Canceled, want: ""},
		{name: "joined", err: errors.Join(context.Canceled, ErrCancelled), want: "CANCELLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
