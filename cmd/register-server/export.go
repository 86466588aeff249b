package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/registre/internal/register/export"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/store/factory"
	"github.com/BrandonDHaskell/registre/internal/register/view"
)

func exportCommand() *cobra.Command {
	var kind, format, outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the visitor register or traceability log to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := exportRun(cmd.Context(), export.Kind(kind), format, outDir)
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(export.KindVisitors), "visitors or events")
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or xlsx")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the file into")
	return cmd
}

func exportRun(ctx context.Context, kind export.Kind, rawFormat, outDir string) (string, error) {
	cfg, logger, err := commonRun()
	if err != nil {
		return "", err
	}
	format, ok := export.ParseFormat(rawFormat)
	if !ok {
		return "", errors.Errorf("unknown export format %q", rawFormat)
	}

	sub, closeStore, err := factory.Open(ctx, cfg, logger)
	if err != nil {
		return "", errors.Wrap(err, "open storage")
	}
	defer closeStore()

	ps := persist.New(sub, persist.WithNamespace(cfg.Namespace), persist.WithLogger(logger))
	register := service.NewRegister(ps, service.WithLogger(logger))
	register.Load(ctx)

	loc := cfg.Location()
	var table export.Table
	switch kind {
	case export.KindVisitors:
		table = export.VisitorTable(view.SortByDateDescending(register.Visitors()), loc)
	case export.KindEvents:
		table = export.EventTable(view.SortByDateDescending(register.Events()), loc)
	default:
		return "", errors.Errorf("unknown export kind %q", kind)
	}
	if len(table.Rows) == 0 {
		return "", export.ErrNoRows
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output dir")
	}
	path := filepath.Join(outDir, export.Filename(kind, format, register.Now().In(loc)))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create export file")
	}
	if err := export.Write(f, format, table); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrap(err, "close export file")
	}
	logger.Info().Str("path", path).Int("rows", len(table.Rows)).Msg("export written")
	return path, nil
}
