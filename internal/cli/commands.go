package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/core"
	"github.com/JonMunkholm/gridkit/internal/importer"
	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/JonMunkholm/gridkit/internal/store"
	"github.com/spf13/cobra"
)

// errRejected reports an import that left problems behind.
var errRejected = errors.New("import has errors")

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [schema files...]",
		Short: "Check schema files",
		Long: `Validate parses and checks schema files. With no arguments it loads the
whole schema directory, which also catches duplicate entity names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				reg, err := core.LoadRegistry(a.cfg.Schema.Dir)
				if err != nil {
					return err
				}
				for _, name := range reg.Names() {
					s, _ := reg.Get(name)
					fmt.Fprintf(out, "ok  %s (%d fields)\n", name, s.Len())
				}
				return nil
			}

			var errs []error
			for _, path := range args {
				s, err := schema.Load(path)
				if err == nil {
					err = s.Validate()
				}
				if err != nil {
					fmt.Fprintf(out, "bad %s: %v\n", path, err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(out, "ok  %s (%d fields)\n", s.Name, s.Len())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d schemas invalid", len(errs), len(args))
			}
			return nil
		},
	}
}

func (a *app) columnsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "columns <entity>",
		Short: "Print the table columns of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			cols, err := svc.Columns(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), cols)
			}

			tw := newTable(cmd.OutOrStdout(), "KEY", "TITLE", "KIND", "SORTABLE", "HIDDEN")
			for _, c := range cols {
				row(tw, c.Key, c.Title, string(c.Kind), yesNo(c.Sortable), yesNo(c.Hidden))
			}
			return tw.Flush()
		},
	}
}

func (a *app) fieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <entity>",
		Short: "Print the input fields of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(nil)
			if err != nil {
				return err
			}
			fields, err := svc.InputFields(args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(cmd.OutOrStdout(), fields)
			}

			tw := newTable(cmd.OutOrStdout(), "KEY", "LABEL", "KIND", "REQUIRED", "DEPENDS ON")
			for _, f := range fields {
				dep := ""
				if f.DependsOn != nil {
					dep = f.DependsOn.Key
				}
				row(tw, f.Key, f.Label, string(f.Kind), yesNo(f.Required), dep)
			}
			return tw.Flush()
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	var commit bool

	cmd := &cobra.Command{
		Use:   "import <entity> <file>",
		Short: "Check a CSV or XLSX file against an entity, optionally storing it",
		Long: `Import parses a file the same way the server does and prints the outcome.
Nothing is stored unless --commit is set, which needs DATABASE_URL.
The command fails when any row was rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, path := args[0], args[1]
			ctx := cmd.Context()

			var st store.Store
			if commit {
				pg, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer pg.Close()
				st = pg
			}
			svc, err := a.service(st)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			run := svc.Preview
			if commit {
				run = svc.Import
			}
			res, err := run(ctx, entity, filepath.Base(path), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				if err := a.printJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%s: %d rows, %d accepted, %d rejected\n",
					res.FileName, res.TotalRows, len(res.Rows), res.Rejected)
				for _, msg := range res.Errors {
					fmt.Fprintf(out, "  %s\n", msg)
				}
				if res.Committed {
					fmt.Fprintf(out, "stored as import %s\n", res.ImportID)
				}
			}

			if len(res.Errors) > 0 {
				return fmt.Errorf("%s: %w (%d)", res.FileName, errRejected, len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "store accepted rows in the database")
	return cmd
}

func (a *app) templateCommand() *cobra.Command {
	var (
		format  string
		example bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "template <entity>",
		Short: "Write the bulk-upload template of an entity",
		Long: `Template writes a header row, and with --example one sample row, in CSV or
XLSX. The file goes to the current directory under its default name unless
-o names a path; -o - writes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.ParseFormat(format)
			if err != nil {
				return err
			}
			svc, err := a.service(nil)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := svc.Template(args[0], f, example, cmd.OutOrStdout())
				return err
			}

			var buf strings.Builder
			name, err := svc.Template(args[0], f, example, &buf)
			if err != nil {
				return err
			}
			if output == "" {
				output = name
			}
			if err := os.WriteFile(output, []byte(buf.String()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().BoolVar(&example, "example", false, "add an example row")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, or - for stdout")
	return cmd
}
