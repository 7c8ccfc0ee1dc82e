package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"arenacli/internal/apicontext"
	"arenacli/internal/cli"

	"github.com/spf13/cobra"
)

var (
	contextAddURL       string
	contextAddUse       bool
	contextAddOutput    string
	contextDeleteForce  bool
	contextUpdateURL    string
	contextUpdateOutput string
)

// contextCmd represents the context command group
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage named API backends",
	Long: `Manage named contexts for different Arena API backends.

Contexts let you switch between production, staging and a local backend
without passing --api-url to every command. Each context keeps its own
session, so logging in to staging does not touch your production login.

Examples:
  arena context                                   # List all contexts
  arena context add local --url http://localhost:3000/api
  arena context add staging --url https://staging.arena.gg/api --use
  arena context use staging                       # Switch (alias: switch)
  arena context current                           # Print the current name
  arena context show staging -o json              # Details (alias: describe)
  arena context update staging --url <url>        # Change the URL (alias: set)
  arena context rename staging stage
  arena context delete stage --force              # Remove (alias: rm)

Contexts are stored in contexts.yaml in the configuration directory.

Precedence (highest to lowest):
  1. --api-url flag
  2. ARENA_API_URL environment variable
  3. --context flag
  4. ARENA_CONTEXT environment variable
  5. current-context from contexts.yaml
  6. api.base_url from config.yaml`,
	Args: cobra.NoArgs,
	RunE: runContextList,
}

var contextListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	Long:    `List all configured contexts. The current context is marked with an asterisk.`,
	Args:    cobra.NoArgs,
	RunE:    runContextList,
}

var contextCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the current context name",
	Long:  `Print the name of the current context, or nothing when none is set.`,
	Args:  cobra.NoArgs,
	RunE:  runContextCurrent,
}

var contextUseCmd = &cobra.Command{
	Use:               "use <name>",
	Aliases:           []string{"switch"},
	Short:             "Switch to a different context",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeContextNames,
	RunE:              runContextUse,
}

var contextAddCmd = &cobra.Command{
	Use:   "add <name> --url <base-url>",
	Short: "Add a new context",
	Long: `Add a named context pointing to an Arena API base URL.

Context names must:
  - Be between 1 and 63 characters
  - Contain only lowercase letters, numbers, and hyphens
  - Start and end with an alphanumeric character`,
	Args: cobra.ExactArgs(1),
	RunE: runContextAdd,
}

var contextDeleteCmd = &cobra.Command{
	Use:               "delete <name>",
	Aliases:           []string{"rm", "remove"},
	Short:             "Delete a context",
	Long:              `Remove a context. Asks for confirmation unless --force is given.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeContextNames,
	RunE:              runContextDelete,
}

var contextRenameCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a context",
	Long: `Rename a context. The session stored for the old name is not carried
over; log in again after renaming.`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return contextNames(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runContextRename,
}

var contextShowCmd = &cobra.Command{
	Use:               "show <name>",
	Aliases:           []string{"describe", "get"},
	Short:             "Show context details",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeContextNames,
	RunE:              runContextShow,
}

var contextUpdateCmd = &cobra.Command{
	Use:               "update <name> --url <base-url>",
	Aliases:           []string{"set"},
	Short:             "Change the URL or settings of a context",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeContextNames,
	RunE:              runContextUpdate,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextListCmd, contextCurrentCmd, contextUseCmd, contextAddCmd,
		contextDeleteCmd, contextRenameCmd, contextShowCmd, contextUpdateCmd)

	contextAddCmd.Flags().StringVar(&contextAddURL, "url", "", "API base URL (required)")
	contextAddCmd.Flags().BoolVar(&contextAddUse, "use", false, "Switch to the context after adding it")
	contextAddCmd.Flags().StringVar(&contextAddOutput, "default-output", "", "Output format used with this context (table, json, yaml)")
	_ = contextAddCmd.MarkFlagRequired("url")

	contextDeleteCmd.Flags().BoolVarP(&contextDeleteForce, "force", "f", false, "Skip confirmation prompt")

	contextUpdateCmd.Flags().StringVar(&contextUpdateURL, "url", "", "New API base URL (required)")
	contextUpdateCmd.Flags().StringVar(&contextUpdateOutput, "default-output", "", "Output format used with this context")
	_ = contextUpdateCmd.MarkFlagRequired("url")
}

func contextStore() *apicontext.Store {
	return apicontext.NewStore(globalFlags.ConfigPath)
}

func completeContextNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return contextNames(), cobra.ShellCompDirectiveNoFileComp
}

func contextNames() []string {
	names, err := contextStore().Names()
	if err != nil {
		return nil
	}
	return names
}

// say prints progress lines unless --quiet is set.
func say(cmd *cobra.Command, format string, args ...any) {
	if !globalFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	}
}

func settingsFor(output string) (*apicontext.Settings, error) {
	if output == "" {
		return nil, nil
	}
	if err := cli.ValidateOutputFormat(output); err != nil {
		return nil, err
	}
	return &apicontext.Settings{Output: output}, nil
}

func runContextList(cmd *cobra.Command, args []string) error {
	f, err := contextStore().Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}

	if len(f.Contexts) == 0 && globalFlags.OutputFormat == string(cli.OutputFormatTable) {
		say(cmd, `No contexts configured yet.

Add one and switch to it:
  arena context add local --url http://localhost:3000/api --use
`)
		return nil
	}

	rows := make([][]string, 0, len(f.Contexts))
	for _, c := range f.Contexts {
		current := ""
		if c.Name == f.CurrentContext {
			current = "*"
		}
		rows = append(rows, []string{current, c.Name, c.BaseURL})
	}
	p := cli.NewPrinter(cmd.OutOrStdout(), cli.OutputFormat(globalFlags.OutputFormat), globalFlags.NoHeaders)
	return p.Print(f, []string{"current", "name", "url"}, rows)
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	f, err := contextStore().Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}
	if f.CurrentContext != "" {
		fmt.Fprintln(cmd.OutOrStdout(), f.CurrentContext)
	}
	return nil
}

func runContextUse(cmd *cobra.Command, args []string) error {
	if err := contextStore().Use(args[0]); err != nil {
		return err
	}
	say(cmd, "Switched to context %q\n", args[0])
	return nil
}

func runContextAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	settings, err := settingsFor(contextAddOutput)
	if err != nil {
		return err
	}

	store := contextStore()
	if err := store.Add(apicontext.Context{Name: name, BaseURL: contextAddURL, Settings: settings}); err != nil {
		return fmt.Errorf("failed to add context: %w", err)
	}
	say(cmd, "Context %q added.\n", name)

	if contextAddUse {
		if err := store.Use(name); err != nil {
			return err
		}
		say(cmd, "Switched to context %q\n", name)
		return nil
	}
	if f, err := store.Load(); err == nil && f.CurrentContext == "" {
		say(cmd, "\nTo use this context, run:\n  arena context use %s\n", name)
	}
	return nil
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	store := contextStore()

	f, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}
	if !f.Has(name) {
		return &apicontext.NotFoundError{Name: name}
	}
	wasCurrent := f.CurrentContext == name

	if !contextDeleteForce {
		prompt := fmt.Sprintf("Delete context %q?", name)
		if wasCurrent {
			prompt = fmt.Sprintf("Delete context %q (current context)?", name)
		}
		if !confirmAction(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
			say(cmd, "Aborted.\n")
			return nil
		}
	}

	if err := store.Delete(name); err != nil {
		return err
	}
	say(cmd, "Context %q deleted.\n", name)
	if wasCurrent {
		say(cmd, "This was the current context; commands now use api.base_url from config.yaml.\n")
	}
	return nil
}

func runContextRename(cmd *cobra.Command, args []string) error {
	if err := contextStore().Rename(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename context: %w", err)
	}
	say(cmd, "Context %q renamed to %q.\n", args[0], args[1])
	return nil
}

// contextDetails is the show output.
type contextDetails struct {
	Name     string               `json:"name"`
	BaseURL  string               `json:"baseUrl"`
	Current  bool                 `json:"current"`
	StateDir string               `json:"stateDir"`
	Settings *apicontext.Settings `json:"settings,omitempty"`
}

func runContextShow(cmd *cobra.Command, args []string) error {
	f, err := contextStore().Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}
	c := f.Get(args[0])
	if c == nil {
		return &apicontext.NotFoundError{Name: args[0]}
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	details := contextDetails{
		Name:     c.Name,
		BaseURL:  c.BaseURL,
		Current:  f.CurrentContext == c.Name,
		StateDir: apicontext.StateDir(app.Config.Storage.Dir, c.Name),
		Settings: c.Settings,
	}
	if app.Context == c.Name {
		details.StateDir = app.Config.Storage.Dir
	}
	output := ""
	if c.Settings != nil {
		output = c.Settings.Output
	}
	return app.Printer().Print(details,
		[]string{"name", "url", "current", "output", "state"},
		[][]string{{c.Name, c.BaseURL, fmt.Sprint(details.Current), output, details.StateDir}})
}

func runContextUpdate(cmd *cobra.Command, args []string) error {
	settings, err := settingsFor(contextUpdateOutput)
	if err != nil {
		return err
	}
	if err := contextStore().Update(args[0], contextUpdateURL, settings); err != nil {
		return fmt.Errorf("failed to update context: %w", err)
	}
	say(cmd, "Context %q updated.\n", args[0])
	return nil
}

// confirmAction asks a yes/no question on in and reports a yes.
func confirmAction(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
