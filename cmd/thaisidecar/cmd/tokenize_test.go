package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeCmd_PlainTextOutputsTokens(t *testing.T) {
	cmd := newTokenizeCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"hello world"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "engine:")
}

func TestTokenizeCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newTokenizeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.Error(t, err)
}

func TestTokenizeQueryCmd_PlainTextOutputsClassification(t *testing.T) {
	cmd := newTokenizeQueryCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"hello"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "thai ratio:")
}
