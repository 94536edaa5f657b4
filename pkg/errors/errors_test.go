package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeUnknown},
		{"plain error", errors.New("boom"), CodeUnknown},
		{"direct app error", ErrNotParticipant, CodePermissionDenied},
		{"wrapped cause", ErrStoreWrite(errors.New("socket reset")), CodeUnavailable},
		{"fmt wrapped", fmt.Errorf("handling frame: %w", ErrBadToken), CodeUnauthenticated},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrEmptyMessage)), CodeInvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CodeOf(tc.err))
		})
	}
}

func TestAppErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(CodeInternal, "fan-out failed", errors.New("buffer full"))
	assert.Equal(t, "fan-out failed: buffer full", err.Error())
	assert.Equal(t, "buffer full", errors.Unwrap(err).Error())
}

func TestSentinelsUnwrapToNil(t *testing.T) {
	assert.Nil(t, errors.Unwrap(ErrBadToken))
}
