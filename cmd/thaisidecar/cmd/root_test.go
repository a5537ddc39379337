package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_UnknownFlagIsUsageError(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"version", "--not-a-real-flag"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	_, err := root.ExecuteC()
	require.Error(t, err)

	if root.SilenceUsage {
		t.Error("root.SilenceUsage should remain false when arg parsing fails before PersistentPreRunE")
	}
}

func TestExecute_RuntimeFailureIsNotUsageError(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"tokenize", "some text"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	invoked, err := root.ExecuteC()
	if err == nil {
		t.Skip("tokenize did not fail for this input in this environment")
	}

	if invoked != nil && !invoked.SilenceUsage {
		t.Error("expected SilenceUsage to be set once PersistentPreRunE has run")
	}
}

func TestUsageError_UnwrapsToUnderlyingError(t *testing.T) {
	cause := errors.New("unknown flag: --bogus")
	wrapped := &UsageError{err: cause}

	assert.Equal(t, cause.Error(), wrapped.Error())
	assert.True(t, errors.Is(wrapped, cause))
}
