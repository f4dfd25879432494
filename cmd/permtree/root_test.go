package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"apply", "version", "completion", "man"} {
		assert.True(t, names[want], "command %q should be registered", want)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestApplyCommandFlags(t *testing.T) {
	for _, name := range []string{"rules", "roles", "dry-run"} {
		require.NotNil(t, applyCmd.Flags().Lookup(name), "flag %q", name)
	}
}
