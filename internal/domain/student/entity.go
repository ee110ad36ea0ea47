package student

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alem-hub/student-roster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Границы допустимой оценки (включительно).
const (
	MinGrade Grade = 0
	MaxGrade Grade = 100
)

// Grade представляет оценку по предмету.
type Grade float64

// IsValid проверяет, что оценка конечна и лежит в [0, 100].
func (g Grade) IsValid() bool {
	f := float64(g)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return g >= MinGrade && g <= MaxGrade
}

// String возвращает оценку с двумя знаками после запятой.
func (g Grade) String() string {
	return strconv.FormatFloat(float64(g), 'f', 2, 64)
}

// ParseGrade разбирает оценку из пользовательского ввода.
// Нечисловой ввод и значения вне [0, 100] дают ErrInvalidGrade.
func ParseGrade(raw string) (Grade, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, shared.ErrInvalidGrade.Wrap(err)
	}
	g := Grade(f)
	if !g.IsValid() {
		return 0, shared.ErrInvalidGrade
	}
	return g, nil
}

// Subject - предмет и оценка студента по нему.
// Имя предмета сравнивается без учёта регистра.
type Subject struct {
	Name  string
	Grade Grade
}

// Matches возвращает true, если имя предмета совпадает с name без учёта регистра.
func (s Subject) Matches(name string) bool {
	return strings.EqualFold(s.Name, strings.TrimSpace(name))
}

// String возвращает "Name: 85.00".
func (s Subject) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Grade)
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - студент с упорядоченным списком предметов.
// Не потокобезопасен: принадлежит одному владельцу (Roster).
type Student struct {
	id       string
	name     string
	subjects []Subject
}

// New создаёт студента без предметов.
func New(id, name string) (*Student, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id == "" {
		return nil, shared.ErrInvalidStudentID
	}
	if name == "" {
		return nil, shared.ErrInvalidStudentName
	}

	return &Student{
		id:       id,
		name:     name,
		subjects: make([]Subject, 0),
	}, nil
}

// ID возвращает неизменяемый идентификатор студента.
func (s *Student) ID() string {
	return s.id
}

// Name возвращает отображаемое имя.
func (s *Student) Name() string {
	return s.name
}

// AddOrUpdateSubject добавляет предмет или обновляет оценку существующего.
// При ошибке список предметов не меняется.
func (s *Student) AddOrUpdateSubject(name string, grade Grade) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.ErrInvalidSubject
	}
	if !grade.IsValid() {
		return shared.ErrInvalidGrade
	}

	for i := range s.subjects {
		if s.subjects[i].Matches(name) {
			s.subjects[i].Grade = grade
			return nil
		}
	}

	s.subjects = append(s.subjects, Subject{Name: name, Grade: grade})
	return nil
}

// Subject ищет предмет по имени без учёта регистра.
func (s *Student) Subject(name string) (Subject, bool) {
	for _, sub := range s.subjects {
		if sub.Matches(name) {
			return sub, true
		}
	}
	return Subject{}, false
}

// Subjects возвращает копию списка предметов в порядке добавления.
func (s *Student) Subjects() []Subject {
	out := make([]Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

// AverageGrade возвращает среднее арифметическое оценок.
// Для студента без предметов среднее равно 0.
func (s *Student) AverageGrade() float64 {
	if len(s.subjects) == 0 {
		return 0
	}

	var total float64
	for _, sub := range s.subjects {
		total += float64(sub.Grade)
	}
	return total / float64(len(s.subjects))
}

// Clone создаёт независимую копию студента.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	return &Student{
		id:       s.id,
		name:     s.name,
		subjects: s.Subjects(),
	}
}

// String возвращает строку для отображения в отчётах.
func (s *Student) String() string {
	return fmt.Sprintf("ID: %s | Name: %s | Average: %.2f", s.id, s.name, s.AverageGrade())
}

// SubjectsString возвращает "[Math: 80.00, Science: 90.00]".
func (s *Student) SubjectsString() string {
	parts := make([]string, len(s.subjects))
	for i, sub := range s.subjects {
		parts[i] = sub.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
