// Package roster содержит коллекцию студентов одной сессии и отчёты по ней.
//
// Roster владеет студентами эксклюзивно: он создаётся при старте,
// передаётся в Shell явно и не хранится ни в каких глобальных переменных.
// Перечисление студентов идёт в порядке добавления; отчёты, которым нужен
// другой порядок, сортируют явно.
package roster

import (
	"strings"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// Roster - коллекция студентов, индексированная по ID.
// Инвариант: ключ byID[k] всегда равен byID[k].ID(), а order содержит
// ровно те же ключи в порядке добавления.
type Roster struct {
	byID  map[string]*student.Student
	order []string
}

// New создаёт пустой Roster.
func New() *Roster {
	return &Roster{
		byID:  make(map[string]*student.Student),
		order: make([]string, 0),
	}
}

// Add добавляет нового студента без предметов.
// Возвращает ErrStudentAlreadyExists, если ID уже занят; roster при этом не меняется.
func (r *Roster) Add(id, name string) error {
	s, err := student.New(id, name)
	if err != nil {
		return err
	}
	return r.insert(s)
}

// Remove удаляет студента по ID.
// Возвращает ErrStudentNotFound, если такого студента нет.
func (r *Roster) Remove(id string) error {
	id = strings.TrimSpace(id)
	if _, ok := r.byID[id]; !ok {
		return shared.ErrStudentNotFound
	}

	delete(r.byID, id)
	for i, key := range r.order {
		if key == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find возвращает студента по ID. Не изменяет roster.
func (r *Roster) Find(id string) (*student.Student, bool) {
	s, ok := r.byID[strings.TrimSpace(id)]
	return s, ok
}

// UpdateGrade добавляет или обновляет оценку студента по предмету.
func (r *Roster) UpdateGrade(id, subject string, grade student.Grade) error {
	s, ok := r.Find(id)
	if !ok {
		return shared.ErrStudentNotFound
	}
	return s.AddOrUpdateSubject(subject, grade)
}

// Merge добавляет студента или, если ID уже есть, переносит его оценки
// в существующую запись. Имя существующего студента не меняется.
func (r *Roster) Merge(s *student.Student) (created bool, err error) {
	existing, ok := r.byID[s.ID()]
	if !ok {
		return true, r.insert(s.Clone())
	}
	for _, sub := range s.Subjects() {
		if err := existing.AddOrUpdateSubject(sub.Name, sub.Grade); err != nil {
			return false, err
		}
	}
	return false, nil
}

// All возвращает снимок всех студентов в порядке добавления.
func (r *Roster) All() []*student.Student {
	out := make([]*student.Student, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len возвращает количество студентов.
func (r *Roster) Len() int {
	return len(r.order)
}

// IsEmpty возвращает true, если в roster нет студентов.
func (r *Roster) IsEmpty() bool {
	return len(r.order) == 0
}

// Reset удаляет всех студентов.
func (r *Roster) Reset() {
	r.byID = make(map[string]*student.Student)
	r.order = make([]string, 0)
}

func (r *Roster) insert(s *student.Student) error {
	if _, exists := r.byID[s.ID()]; exists {
		return shared.ErrStudentAlreadyExists
	}
	r.byID[s.ID()] = s
	r.order = append(r.order, s.ID())
	return nil
}
