// Package cli implements gridctl, a command-line front end to the entity
// registry: schema validation, projections, file imports and templates.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/gridkit/internal/config"
	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/logging"
	"github.com/JonMunkholm/gridkit/internal/store"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand.
type app struct {
	getenv    config.Getenv
	cfg       *config.Config
	schemaDir string
	logLevel  string
	jsonOut   bool
}

// NewRootCommand builds the gridctl command tree. getenv supplies the same
// variables the server reads.
func NewRootCommand(getenv config.Getenv) *cobra.Command {
	a := &app{getenv: getenv}

	root := &cobra.Command{
		Use:   "gridctl",
		Short: "Inspect entity schemas and import spreadsheet files",
		Long: `gridctl works with the entity schemas the gridkit server loads.
It validates schema files, prints the derived columns and input fields,
checks or imports CSV and XLSX files and writes bulk-upload templates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.schemaDir, "schemas", "", "schema directory (default $SCHEMA_DIR or ./schemas)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		a.validateCommand(),
		a.columnsCommand(),
		a.fieldsCommand(),
		a.importCommand(),
		a.templateCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), a.logLevel, "text"))

	cfg, err := config.LoadFrom(a.getenv)
	if err != nil {
		return err
	}
	if a.schemaDir != "" {
		cfg.Schema.Dir = a.schemaDir
	}
	a.cfg = cfg
	return nil
}

// service loads the registry and builds a Service over st, or over an
// in-memory store when st is nil.
func (a *app) service(st store.Store) (*core.Service, error) {
	reg, err := core.LoadRegistry(a.cfg.Schema.Dir)
	if err != nil {
		return nil, err
	}
	return core.NewService(core.Deps{Registry: reg, Store: st}, a.cfg)
}

// openStore connects to the configured database.
func (a *app) openStore(ctx context.Context) (*store.Postgres, error) {
	if !a.cfg.Database.UsePostgres() {
		return nil, fmt.Errorf("--commit needs DATABASE_URL")
	}
	return store.Connect(ctx, a.cfg.Database)
}

func (a *app) printJSON(w io.Writer, v any) error {
	return jsonEncoder(w).Encode(v)
}
