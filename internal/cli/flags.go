package cli

import (
	"arenacli/internal/apicontext"
	"arenacli/internal/config"

	"github.com/spf13/cobra"
)

// CommandFlags holds the flag values shared by every command that talks to
// the API.
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses spinners and non-essential output
	Quiet bool
	// Debug forces debug logging regardless of log_level
	Debug bool
	// ConfigPath specifies a custom configuration directory path
	ConfigPath string
	// APIURL overrides api.base_url, ARENA_API_URL and any context
	APIURL string
	// Context selects a named backend from contexts.yaml
	Context string
	// Ephemeral keeps the session in memory only; nothing is read from or
	// written to the state directory.
	Ephemeral bool
}

// RegisterCommonFlags registers the shared flags as persistent flags on cmd:
//   - --output/-o: Output format (table, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
//   - --debug: Enable debug logging
//   - --config-path: Configuration directory
//   - --api-url: API base URL
//   - --context: Named backend from contexts.yaml
//   - --ephemeral: Do not persist the session
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	cmd.PersistentFlags().StringVar(&flags.APIURL, "api-url", "", "API base URL (env: "+config.EnvBaseURL+")")
	cmd.PersistentFlags().StringVar(&flags.Context, "context", "", "Use a named backend from contexts.yaml (env: "+apicontext.EnvContext+")")
	cmd.PersistentFlags().BoolVar(&flags.Ephemeral, "ephemeral", false, "Keep the session in memory only")
}

// Validate checks flag values that cobra cannot check by itself. An empty
// output format means the default.
func (f *CommandFlags) Validate() error {
	if f.OutputFormat == "" {
		return nil
	}
	return ValidateOutputFormat(f.OutputFormat)
}
