package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCommonFlags(t *testing.T) {
	var flags CommandFlags
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	RegisterCommonFlags(cmd, &flags)

	for _, name := range []string{"output", "no-headers", "quiet", "debug", "config-path", "api-url", "context", "ephemeral"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "o", cmd.PersistentFlags().Lookup("output").Shorthand)
	assert.Equal(t, "q", cmd.PersistentFlags().Lookup("quiet").Shorthand)

	cmd.SetArgs([]string{"-o", "json", "--ephemeral", "--api-url", "http://localhost:3000/api", "--debug", "--context", "staging"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "json", flags.OutputFormat)
	assert.True(t, flags.Ephemeral)
	assert.True(t, flags.Debug)
	assert.Equal(t, "http://localhost:3000/api", flags.APIURL)
	assert.Equal(t, "staging", flags.Context)
	assert.NotEmpty(t, flags.ConfigPath)
}

func TestCommandFlags_Validate(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"table", false},
		{"json", false},
		{"yaml", false},
		{"wide", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f := CommandFlags{OutputFormat: tt.format}
			err := f.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
