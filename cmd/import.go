package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/directory-cli/internal/cityname"
	"github.com/sells-group/directory-cli/internal/config"
	"github.com/sells-group/directory-cli/internal/importer"
	"github.com/sells-group/directory-cli/internal/store"
)

var (
	importCSVPath    string
	importStateID    string
	importAutoCreate bool
	importFormat     string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a listing spreadsheet (CSV or XLSX) for one state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		autoCreate := cfg.Import.AutoCreateCities
		if cmd.Flags().Changed("auto-create") {
			autoCreate = importAutoCreate
		}

		report, err := importFile(ctx, st, cfg.Import, importCSVPath, importStateID, autoCreate)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", importCSVPath),
			zap.Int("imported", report.Stats.Imported),
		)
		return writeReport(cmd.OutOrStdout(), report, importFormat)
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importStateID, "state", "", "state id to import into (required)")
	importCmd.Flags().BoolVar(&importAutoCreate, "auto-create", false, "create cities that do not exist yet")
	importCmd.Flags().StringVar(&importFormat, "format", "json", "report format: json or yaml")
	_ = importCmd.MarkFlagRequired("csv")
	_ = importCmd.MarkFlagRequired("state")
	rootCmd.AddCommand(importCmd)
}

// importFile reads path and runs one import into stateID.
func importFile(ctx context.Context, st store.Store, ic config.ImportConfig, path, stateID string, autoCreate bool) (*importer.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read %s", path)
	}

	im := importer.New(ic, st, cityname.DefaultRules())
	report, err := im.Run(ctx, importer.Request{
		StateID:    stateID,
		Filename:   filepath.Base(path),
		Data:       data,
		AutoCreate: autoCreate,
	})
	if err != nil {
		return nil, eris.Wrap(err, "import")
	}
	return report, nil
}

// writeReport renders the report as indented JSON or YAML.
func writeReport(w io.Writer, report *importer.Report, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "write json report")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "write yaml report")
		}
		return eris.Wrap(enc.Close(), "write yaml report")
	default:
		return eris.Errorf("unknown report format %q (want json or yaml)", format)
	}
}
