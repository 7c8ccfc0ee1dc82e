package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"arenacli/internal/cli"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug is the repository whose releases carry arena binaries.
const githubRepoSlug = "arenahub/arena"

// errDevVersion is returned when the running binary was not built from a release.
var errDevVersion = errors.New("cannot self-update a development version")

// newSelfUpdateCmd creates the self-update command.
func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update arena to the latest release",
		Long: `Checks GitHub for the latest arena release and replaces the
running binary when a newer version exists.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	currentVersion := rootCmd.Version
	if currentVersion == "" || currentVersion == "dev" {
		return errDevVersion
	}
	return selfUpdate(cmd.Context(), cmd.OutOrStdout(), currentVersion)
}

func selfUpdate(ctx context.Context, out io.Writer, currentVersion string) error {
	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	var (
		latest *selfupdate.Release
		found  bool
	)
	err = cli.RunWithSpinner(out, globalFlags.Quiet, "Checking for updates", func() error {
		var err error
		latest, found, err = updater.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
		return err
	})
	if err != nil {
		return fmt.Errorf("error detecting latest version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest release for %s could not be found", githubRepoSlug)
	}

	if !latest.GreaterThan(currentVersion) {
		fmt.Fprintf(out, "arena %s is the latest version.\n", currentVersion)
		return nil
	}

	fmt.Fprintf(out, "Found newer version: %s (published at %s)\n", latest.Version(), latest.PublishedAt.Format("2006-01-02"))
	if latest.ReleaseNotes != "" {
		fmt.Fprintf(out, "Release notes:\n%s\n", latest.ReleaseNotes)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	err = cli.RunWithSpinner(out, globalFlags.Quiet, "Updating "+exe, func() error {
		return updater.UpdateTo(ctx, latest, exe)
	})
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Updated to version "+latest.Version()))
	return nil
}
