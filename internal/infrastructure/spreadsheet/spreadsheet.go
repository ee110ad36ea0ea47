// Package spreadsheet exchanges roster data with .xlsx workbooks.
//
// Layout of the "Roster" sheet: a header row "ID, Name, <subject>..., Average"
// followed by one row per student. Subject columns are the union of all
// subject names in first-seen order; a blank cell means "no grade".
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alem-hub/student-roster/internal/domain/student"
)

// SheetName is the sheet written by Export.
const SheetName = "Roster"

const averageHeader = "Average"

// Export writes students as an xlsx workbook to w.
func Export(w io.Writer, students []*student.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	subjects := subjectColumns(students)
	header := append([]any{"ID", "Name"}, toAny(subjects)...)
	header = append(header, averageHeader)

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, st := range students {
		row := make([]any, 0, len(header))
		row = append(row, st.ID(), st.Name())
		for _, name := range subjects {
			if sub, ok := st.Subject(name); ok {
				row = append(row, float64(sub.Grade))
			} else {
				row = append(row, nil)
			}
		}
		row = append(row, st.AverageGrade())

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ImportResult is the outcome of reading a workbook.
type ImportResult struct {
	Students []*student.Student

	// SkippedRows lists 1-based row numbers missing an ID or name.
	SkippedRows []int
}

// Import reads the first sheet of the workbook in r. The first row is the
// header; column A is the ID, column B the name, and every further column
// except "Average" is a subject. An unparsable or out-of-range grade fails
// the whole import with shared.ErrInvalidGrade and the offending cell.
func Import(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheet, err)
	}

	result := &ImportResult{}
	if len(rows) == 0 {
		return result, nil
	}

	header := rows[0]
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rowNum := i + 1

		id, name := cell(row, 0), cell(row, 1)
		if id == "" || name == "" {
			result.SkippedRows = append(result.SkippedRows, rowNum)
			continue
		}

		st, err := student.New(id, name)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		for col := 2; col < subjectEnd(header); col++ {
			subject := strings.TrimSpace(header[col])
			if subject == "" {
				continue
			}
			raw := cell(row, col)
			if raw == "" {
				continue
			}
			grade, err := student.ParseGrade(raw)
			if err != nil {
				ref, _ := excelize.CoordinatesToCellName(col+1, rowNum)
				return nil, fmt.Errorf("cell %s (%s): %w", ref, subject, err)
			}
			if err := st.AddOrUpdateSubject(subject, grade); err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
		}

		result.Students = append(result.Students, st)
	}

	return result, nil
}

// subjectEnd is the index after the last subject column. Only a trailing
// "Average" column is the computed one; an earlier column with that name
// is an ordinary subject.
func subjectEnd(header []string) int {
	n := len(header)
	if n > 2 && strings.EqualFold(strings.TrimSpace(header[n-1]), averageHeader) {
		return n - 1
	}
	return n
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// subjectColumns returns distinct subject names (case-insensitive) in first-seen order.
func subjectColumns(students []*student.Student) []string {
	seen := make(map[string]bool)
	var names []string
	for _, st := range students {
		for _, sub := range st.Subjects() {
			key := strings.ToLower(sub.Name)
			if !seen[key] {
				seen[key] = true
				names = append(names, sub.Name)
			}
		}
	}
	return names
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
