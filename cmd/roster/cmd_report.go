package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-roster/internal/interface/shell"
)

// =============================================================================
// REPORT COMMANDS
// =============================================================================

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a report without starting the menu",
	Long: `Print one of the roster reports and exit.

Subcommands:
  list              - average grade per student
  sorted            - students ranked by average grade
  extremes SUBJECT  - highest and lowest grade in a subject`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "Average grade per student",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

var reportSortedCmd = &cobra.Command{
	Use:   "sorted",
	Short: "Students ranked by average grade",
	Args:  cobra.NoArgs,
	RunE:  runReportSorted,
}

var reportExtremesCmd = &cobra.Command{
	Use:   "extremes <subject>",
	Short: "Highest and lowest grade in a subject",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReportExtremes,
}

func init() {
	reportCmd.AddCommand(reportListCmd, reportSortedCmd, reportExtremesCmd)
}

func runReportList(cmd *cobra.Command, args []string) error {
	r, _, closeStore, err := openRoster(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	if r.IsEmpty() {
		fmt.Fprintln(out, shell.MsgNoStudents)
		return nil
	}
	fmt.Fprint(out, shell.NewPresenter(out).Averages(r.All()))
	return nil
}

func runReportSorted(cmd *cobra.Command, args []string) error {
	r, _, closeStore, err := openRoster(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	if r.IsEmpty() {
		fmt.Fprintln(out, shell.MsgNoStudents)
		return nil
	}
	fmt.Fprint(out, shell.NewPresenter(out).Ranking(r.Ranking(), r.Summarize()))
	return nil
}

func runReportExtremes(cmd *cobra.Command, args []string) error {
	r, _, closeStore, err := openRoster(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	if r.IsEmpty() {
		fmt.Fprintln(out, shell.MsgNoStudents)
		return nil
	}

	// Предметы из нескольких слов можно передавать без кавычек.
	ext, ok := r.SubjectExtremes(strings.Join(args, " "))
	if !ok {
		fmt.Fprintln(out, shell.MsgNoSubjectGrades)
		return nil
	}
	fmt.Fprint(out, shell.NewPresenter(out).Extremes(ext))
	return nil
}
