package shell

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Превращает доменные объекты в текст для консоли. Стили берутся из
// renderer, привязанного к выходному потоку: без TTY цвета отключаются.
// ══════════════════════════════════════════════════════════════════════════════

// Presenter форматирует меню и отчёты.
type Presenter struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	muted  lipgloss.Style
	border lipgloss.Style
}

// NewPresenter создаёт презентер для вывода в w.
func NewPresenter(w io.Writer) *Presenter {
	r := lipgloss.NewRenderer(w)
	return &Presenter{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		muted:  r.NewStyle().Faint(true),
		border: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// MENUS
// ─────────────────────────────────────────────────────────────────────────────

// MainMenu возвращает главное меню.
func (p *Presenter) MainMenu() string {
	var sb strings.Builder
	sb.WriteString(p.title.Render("Student Management System"))
	sb.WriteString("\n")
	for i, item := range []string{
		"Add student",
		"Remove student",
		"Update student grades",
		"View all students",
		"Generate reports",
		"Save to file",
		"Load from file",
		"Exit",
	} {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return sb.String()
}

// ReportsMenu возвращает меню отчётов.
func (p *Presenter) ReportsMenu() string {
	var sb strings.Builder
	sb.WriteString(p.title.Render("Reports"))
	sb.WriteString("\n")
	sb.WriteString("1. Average grade per student\n")
	sb.WriteString("2. Highest/Lowest grade in a subject\n")
	sb.WriteString("3. Students sorted by average grade\n")
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// REPORTS
// ─────────────────────────────────────────────────────────────────────────────

// StudentsTable показывает всех студентов с их предметами.
func (p *Presenter) StudentsTable(students []*student.Student) string {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, []string{
			s.ID(),
			s.Name(),
			s.SubjectsString(),
			formatAverage(s.AverageGrade()),
		})
	}
	return p.table([]string{"ID", "Name", "Subjects", "Average"}, rows)
}

// Averages печатает среднюю оценку каждого студента, по строке на студента.
func (p *Presenter) Averages(students []*student.Student) string {
	var sb strings.Builder
	for _, s := range students {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Extremes показывает лучшую и худшую оценку по предмету.
func (p *Presenter) Extremes(ext roster.Extremes) string {
	return fmt.Sprintf(
		"Highest in %s: %s (%s) with %s\nLowest in %s: %s (%s) with %s\n",
		ext.Subject, ext.Top.Name(), ext.Top.ID(), ext.TopGrade,
		ext.Subject, ext.Bottom.Name(), ext.Bottom.ID(), ext.BottomGrade,
	)
}

// Ranking показывает студентов по убыванию среднего и сводку по группе.
func (p *Presenter) Ranking(ranking []roster.RankedStudent, summary roster.Summary) string {
	rows := make([][]string, 0, len(ranking))
	for _, rs := range ranking {
		rows = append(rows, []string{
			strconv.Itoa(rs.Rank),
			rs.Student.ID(),
			rs.Student.Name(),
			formatAverage(rs.Average),
		})
	}

	var sb strings.Builder
	sb.WriteString(p.table([]string{"#", "ID", "Name", "Average"}, rows))
	sb.WriteString("\n")
	sb.WriteString(p.muted.Render(fmt.Sprintf(
		"Students: %d | Class average: %s | Median: %s",
		summary.Students, formatAverage(summary.ClassAverage), formatAverage(summary.MedianAverage),
	)))
	sb.WriteString("\n")
	return sb.String()
}

func (p *Presenter) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func formatAverage(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
