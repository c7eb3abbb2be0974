package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/movelog/internal/config"
	"github.com/roach88/movelog/internal/rules"
	"github.com/roach88/movelog/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the movelog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "movelog",
		Short: "movelog - canonical move histories",
		Long: `Tools for the canonical move history shared by game replicas.

Replicas buffer the moves of a simultaneous phase and merge them into the
permanent log once every player is done. The merge is deterministic, so
every replica ends with a byte-identical log.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $XDG_CONFIG_HOME/"+config.RelPath+")")

	cmd.AddCommand(NewCanonCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewConvergeCommand(opts))

	return cmd
}

// Config loads the config file once per invocation.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Resolve(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.cfg = cfg
	return cfg, nil
}

// Rules returns the rules named by the config, or the defaults.
func (o *RootOptions) Rules() (rules.Rules, error) {
	cfg, err := o.Config()
	if err != nil {
		return rules.Rules{}, err
	}
	if cfg.Rules == "" {
		return rules.Default(), nil
	}
	r, err := rules.Load(cfg.Rules)
	if err != nil {
		return rules.Rules{}, WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	return r, nil
}

// OpenStore opens the database at path, or at the config's store path when
// path is empty.
func (o *RootOptions) OpenStore(path string) (*store.Store, error) {
	if path == "" {
		cfg, err := o.Config()
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// Logger returns a text logger on w. Verbose lowers the level to debug.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
