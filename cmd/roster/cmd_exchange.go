package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-roster/internal/infrastructure/spreadsheet"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// =============================================================================
// EXCEL EXCHANGE COMMANDS
// =============================================================================

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the roster to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Merge students from an Excel workbook and save",
	Long: `Reads the first sheet of the workbook: column A is the student ID,
column B the name, and every further column is a subject. A trailing
"Average" column is treated as computed and ignored.

New students are added; grades for existing students are merged into their
records. Rows without an ID or name are skipped. The roster is saved
afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runExport(cmd *cobra.Command, args []string) error {
	r, _, closeStore, err := openRoster(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	if err := spreadsheet.Export(f, r.All()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", args[0], err)
	}

	log.Info("roster exported", logger.Path(args[0]), logger.Count(r.Len()))
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d students to %s\n", r.Len(), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	result, err := spreadsheet.Import(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	r, store, closeStore, err := openRoster(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	created := 0
	for _, st := range result.Students {
		isNew, err := r.Merge(st)
		if err != nil {
			return fmt.Errorf("merge %s: %w", st.ID(), err)
		}
		if isNew {
			created++
		}
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.App.OperationTimeout)
	defer cancel()
	if err := r.Save(ctx, store); err != nil {
		return err
	}

	log.Info("roster imported",
		logger.Path(args[0]),
		logger.Count(len(result.Students)),
		logger.Int("created", created),
		logger.Int("skipped", len(result.SkippedRows)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d students (%d new).\n", len(result.Students), created)
	if len(result.SkippedRows) > 0 {
		fmt.Fprintf(out, "Skipped rows without ID or name: %v\n", result.SkippedRows)
	}
	return nil
}
