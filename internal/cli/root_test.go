package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_Shape(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "citypath", cmd.Use)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"grid", "hotspots", "recommend", "ask", "layers", "events"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "log-level", "server", "role", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommand_Help(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "overlay engine")
}

func TestGetContext_Uninitialized(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	_, err := getContext(cmd)
	require.Error(t, err)
}

func TestInitContext_InvalidRole(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	err := initContext(cmd, &RootOptions{Role: "mayor"})
	require.Error(t, err)
}
