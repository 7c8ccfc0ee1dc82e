package cmd

import (
	"fmt"
	"time"

	"arenacli/internal/apierror"
	"arenacli/internal/cli"
	"arenacli/internal/session"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Long: `Show whether you are logged in.

A stored token is validated against the server before it is reported as
active; a token the server rejects is removed.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

// sessionStatus is the machine readable form of auth status.
type sessionStatus struct {
	Endpoint     string     `json:"endpoint"`
	State        string     `json:"state"`
	UserID       string     `json:"userId,omitempty"`
	Username     string     `json:"username,omitempty"`
	LastActivity *time.Time `json:"lastActivity,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var reason session.Reason
	unsubscribe := app.Session.OnExpired(func(e session.Expiration) { reason = e.Reason })
	state, startErr := app.Session.Start(cmd.Context())
	unsubscribe()

	st := app.Session.Status()
	status := sessionStatus{
		Endpoint: app.Endpoint(),
		State:    state.String(),
		UserID:   st.UserID,
		Username: st.Username,
		Reason:   string(reason),
	}
	if !st.LastActivity.IsZero() {
		status.LastActivity = &st.LastActivity
	}

	var connErr *cli.ConnectionError
	if startErr != nil {
		status.Error = apierror.UserMessageFor(startErr)
		if apiErr, ok := apierror.As(startErr); ok && apiErr.IsNetworkError() {
			connErr = cli.ClassifyConnectionError(startErr, app.Endpoint())
		}
	}

	if cli.OutputFormat(app.Flags.OutputFormat) != cli.OutputFormatTable {
		return app.Printer().Print(status, nil, nil)
	}

	out := app.Out
	fmt.Fprintln(out, "Arena API")
	fmt.Fprintf(out, "  Endpoint:  %s\n", status.Endpoint)

	switch {
	case connErr != nil:
		fmt.Fprintf(out, "  Status:    %s\n", text.FgRed.Sprint("Connection failed"))
		fmt.Fprintf(out, "             %s: %s\n", connErr.Type, status.Error)
	case startErr != nil:
		fmt.Fprintf(out, "  Status:    %s\n", text.FgRed.Sprint("Validation failed"))
		fmt.Fprintf(out, "             %s\n", status.Error)
	case state == session.StateActive:
		fmt.Fprintf(out, "  Status:    %s\n", cli.StatusColor(true).Sprint("Active"))
		fmt.Fprintf(out, "  User:      %s (%s)\n", status.Username, status.UserID)
		if status.LastActivity != nil {
			fmt.Fprintf(out, "  Activity:  %s\n", formatSince(*status.LastActivity))
		}
	case state == session.StateExpired:
		fmt.Fprintf(out, "  Status:    %s\n", cli.StatusColor(false).Sprint("Expired"))
		if status.Reason != "" {
			fmt.Fprintf(out, "  Reason:    %s\n", status.Reason)
		}
		fmt.Fprintln(out, "             Run: arena auth login")
	default:
		fmt.Fprintf(out, "  Status:    %s\n", cli.StatusColor(false).Sprint("Not logged in"))
		fmt.Fprintln(out, "             Run: arena auth login")
	}
	return nil
}

// formatSince renders t relative to now, e.g. "3m ago".
func formatSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
