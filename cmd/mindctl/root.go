package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"mindmap-backend/infrastructure/config"
	"mindmap-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

// app carries the flags shared by every subcommand
type app struct {
	configFile string
	owner      string

	// newContainer is replaced in tests
	newContainer func(ctx context.Context, cfg *config.Config) (*di.Container, error)
}

func newRootCommand() *cobra.Command {
	a := &app{newContainer: di.InitializeContainer}
	return a.command()
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "mindctl",
		Short: "Command-line tool for mind maps",
		Long: `mindctl talks to the configured mind map store directly.

Configuration comes from the same environment variables as the API and an
optional YAML file given with --config or CONFIG_FILE.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", os.Getenv("CONFIG_FILE"), "YAML configuration file")
	root.PersistentFlags().StringVar(&a.owner, "owner", os.Getenv("MINDCTL_OWNER"), "owner (user id) of the maps")

	root.AddCommand(
		a.listCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.expandCommand(),
		a.classifyCommand(),
		a.tokenCommand(),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// withContainer builds the application graph, runs fn and flushes every
// open map before returning
func (a *app) withContainer(ctx context.Context, fn func(c *di.Container) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	c, err := a.newContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer c.Logger.Sync()

	runErr := fn(c)
	if err := c.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to save maps: %w", err)
	}
	return runErr
}

func (a *app) requireOwner() error {
	if a.owner == "" {
		return fmt.Errorf("--owner is required")
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput reads a file, or stdin for "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes to a file, or stdout when path is empty or "-"
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
