package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("provider", "", "")
	cmd.Flags().Int("concurrency", 0, "")
	cmd.Flags().StringSlice("upload-album", nil, "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestStringFlagOr(t *testing.T) {
	assert.Equal(t, "sidecar", stringFlagOr(newFlagCommand(t), "provider", "sidecar"))
	assert.Equal(t, "openai", stringFlagOr(newFlagCommand(t, "--provider", "openai"), "provider", "sidecar"))
}

func TestIntFlagOr(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{"unset", nil, 5},
		{"set", []string{"--concurrency", "8"}, 8},
		{"zero falls back", []string{"--concurrency", "0"}, 5},
		{"negative falls back", []string{"--concurrency=-2"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, intFlagOr(newFlagCommand(t, tt.args...), "concurrency", 5))
		})
	}
}

func TestMustGetStringSlice(t *testing.T) {
	cmd := newFlagCommand(t, "--upload-album", "a1,a2", "--upload-album", "a3")
	assert.Equal(t, []string{"a1", "a2", "a3"}, mustGetStringSlice(cmd, "upload-album"))
}

func TestMustGet_UnknownFlagPanics(t *testing.T) {
	assert.Panics(t, func() { mustGetBool(newFlagCommand(t), "missing") })
}
