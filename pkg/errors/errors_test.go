package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/permtree/permtree/pkg/errors"
)

func TestPermError(t *testing.T) {
	t.Run("new_formats_code_and_message", func(t *testing.T) {
		err := errors.New(errors.ErrRuleSyntax, "bad pattern")
		assert.Equal(t, "[RULE_SYNTAX] bad pattern", err.Error())
	})

	t.Run("wrap_preserves_cause", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := errors.Wrap(cause, errors.ErrConfigLoad, "reading config")
		assert.Equal(t, "[CONFIG_LOAD] reading config: boom", err.Error())
		assert.Equal(t, cause, stderrors.Unwrap(err))
	})

	t.Run("wrap_nil_returns_nil", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.ErrConfigLoad, "nope"))
	})

	t.Run("is_matches_on_code", func(t *testing.T) {
		err := errors.Newf(errors.ErrRoleLookup, "unknown user %q", "ghost")
		assert.True(t, stderrors.Is(err, errors.New(errors.ErrRoleLookup, "")))
		assert.False(t, stderrors.Is(err, errors.New(errors.ErrRoleSpec, "")))
	})

	t.Run("code_survives_wrapping", func(t *testing.T) {
		inner := errors.New(errors.ErrRuleRole, "unknown role")
		outer := fmt.Errorf("loading rules: %w", inner)
		assert.True(t, errors.IsErrorCode(outer, errors.ErrRuleRole))
		assert.Equal(t, errors.ErrRuleRole, errors.GetErrorCode(outer))
	})

	t.Run("unknown_code_for_plain_errors", func(t *testing.T) {
		assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(fmt.Errorf("plain")))
		assert.False(t, errors.IsErrorCode(nil, errors.ErrInternal))
	})

	t.Run("with_detail", func(t *testing.T) {
		err := errors.New(errors.ErrRuleSyntax, "bad").WithDetail("line", 3)
		assert.Equal(t, 3, err.Details["line"])
	})
}
