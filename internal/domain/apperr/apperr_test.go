package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openveg/directory-service/internal/domain/apperr"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "invalid argument", err: apperr.InvalidArgument("bad id"), want: apperr.KindInvalidArgument},
		{name: "not found", err: apperr.NotFound("missing"), want: apperr.KindNotFound},
		{name: "conflict", err: apperr.Conflict("duplicate"), want: apperr.KindConflict},
		{name: "internal", err: apperr.Internal("boom", errors.New("io")), want: apperr.KindInternal},
		{name: "unclassified defaults to internal", err: errors.New("plain"), want: apperr.KindInternal},
		{name: "wrapped keeps kind", err: fmt.Errorf("outer: %w", apperr.Conflict("duplicate")), want: apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestIsKind(t *testing.T) {
	assert.True(t, apperr.IsKind(apperr.NotFound("x"), apperr.KindNotFound))
	assert.False(t, apperr.IsKind(apperr.NotFound("x"), apperr.KindConflict))
	assert.False(t, apperr.IsKind(nil, apperr.KindInternal))
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrap: %w", apperr.Conflict("already reviewed"))
	assert.True(t, errors.Is(err, apperr.Conflict("")))
	assert.False(t, errors.Is(err, apperr.NotFound("")))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := apperr.Internal("find", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "internal")
}
