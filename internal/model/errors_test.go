package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrNotFound, "project missing")
	require.Error(t, err)
	assert.Equal(t, "not_found: project missing", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrConnectionFail, "dial datasource", cause)
	assert.Equal(t, "connection_failed: dial datasource: connection refused", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("sqlite", "schema_alter")
	assert.Equal(t, "unsupported: sqlite does not support schema_alter", err.Error())
	assert.Equal(t, ErrUnsupported, err.Kind)
}

func TestKindOf(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, ErrKind(""), KindOf(nil))
	})

	t.Run("typed error", func(t *testing.T) {
		assert.Equal(t, ErrForbidden, KindOf(NewError(ErrForbidden, "root only")))
	})

	t.Run("wrapped typed error", func(t *testing.T) {
		typed := NewError(ErrTimeout, "query exceeded wall clock")
		wrapped := fmt.Errorf("dispatch tool: %w", typed)
		assert.Equal(t, ErrTimeout, KindOf(wrapped))
	})

	t.Run("untyped error defaults to internal", func(t *testing.T) {
		assert.Equal(t, ErrInternal, KindOf(errors.New("boom")))
	})
}
