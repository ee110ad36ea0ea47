package roster

import (
	"sort"

	"github.com/alem-hub/student-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// RankedStudent - позиция студента в рейтинге по среднему баллу.
type RankedStudent struct {
	// Rank начинается с 1. Студенты с одинаковым средним делят ранг.
	Rank    int
	Student *student.Student
	Average float64
}

// SortedByAverageDescending возвращает студентов по убыванию среднего балла.
// Сортировка стабильная: при равном среднем сохраняется порядок All().
func (r *Roster) SortedByAverageDescending() []*student.Student {
	sorted := r.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AverageGrade() > sorted[j].AverageGrade()
	})
	return sorted
}

// Ranking возвращает отсортированный список с рангами.
// Ранги присваиваются как в спортивной таблице: 1, 2, 2, 4.
func (r *Roster) Ranking() []RankedStudent {
	sorted := r.SortedByAverageDescending()
	ranking := make([]RankedStudent, len(sorted))

	for i, s := range sorted {
		avg := s.AverageGrade()
		rank := i + 1
		if i > 0 && avg == ranking[i-1].Average {
			rank = ranking[i-1].Rank
		}
		ranking[i] = RankedStudent{Rank: rank, Student: s, Average: avg}
	}
	return ranking
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT EXTREMES
// ══════════════════════════════════════════════════════════════════════════════

// Extremes - лучшая и худшая оценки по предмету.
type Extremes struct {
	Subject     string
	Top         *student.Student
	TopGrade    student.Grade
	Bottom      *student.Student
	BottomGrade student.Grade
}

// SubjectExtremes находит максимальную и минимальную оценку по предмету
// (без учёта регистра) за один проход в порядке All().
// При равных оценках побеждает первый встреченный студент.
// Возвращает false, если ни у кого нет такого предмета.
func (r *Roster) SubjectExtremes(subject string) (Extremes, bool) {
	var ext Extremes
	found := false

	for _, s := range r.All() {
		sub, ok := s.Subject(subject)
		if !ok {
			continue
		}
		if !found {
			ext = Extremes{
				Subject:     sub.Name,
				Top:         s,
				TopGrade:    sub.Grade,
				Bottom:      s,
				BottomGrade: sub.Grade,
			}
			found = true
			continue
		}
		if sub.Grade > ext.TopGrade {
			ext.Top, ext.TopGrade = s, sub.Grade
		}
		if sub.Grade < ext.BottomGrade {
			ext.Bottom, ext.BottomGrade = s, sub.Grade
		}
	}

	return ext, found
}

// ══════════════════════════════════════════════════════════════════════════════
// SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary - сводная статистика по средним баллам.
type Summary struct {
	Students      int
	ClassAverage  float64
	MedianAverage float64
}

// Summarize считает среднее и медиану средних баллов всех студентов.
// Для пустого roster все значения нулевые.
func (r *Roster) Summarize() Summary {
	sorted := r.SortedByAverageDescending()
	n := len(sorted)
	if n == 0 {
		return Summary{}
	}

	var total float64
	for _, s := range sorted {
		total += s.AverageGrade()
	}

	mid := n / 2
	median := sorted[mid].AverageGrade()
	if n%2 == 0 {
		median = (sorted[mid-1].AverageGrade() + sorted[mid].AverageGrade()) / 2
	}

	return Summary{
		Students:      n,
		ClassAverage:  total / float64(n),
		MedianAverage: median,
	}
}
