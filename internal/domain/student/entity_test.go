package student

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/student-roster/internal/domain/shared"
)

func TestNew(t *testing.T) {
	s, err := New("  s1 ", " Ann ")
	require.NoError(t, err)

	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, "Ann", s.Name())
	assert.Empty(t, s.Subjects())

	_, err = New("", "Ann")
	assert.ErrorIs(t, err, shared.ErrInvalidStudentID)

	_, err = New("s1", "   ")
	assert.ErrorIs(t, err, shared.ErrInvalidStudentName)
}

func TestAddOrUpdateSubject_CaseInsensitiveUpdate(t *testing.T) {
	s, err := New("s1", "Ann")
	require.NoError(t, err)

	require.NoError(t, s.AddOrUpdateSubject("Math", 55))
	require.NoError(t, s.AddOrUpdateSubject("math", 70))

	subjects := s.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, "Math", subjects[0].Name)
	assert.Equal(t, Grade(70), subjects[0].Grade)
}

func TestAddOrUpdateSubject_PreservesInsertionOrder(t *testing.T) {
	s, _ := New("s1", "Ann")
	for _, name := range []string{"Physics", "Art", "Math"} {
		require.NoError(t, s.AddOrUpdateSubject(name, 50))
	}
	require.NoError(t, s.AddOrUpdateSubject("ART", 99))

	subjects := s.Subjects()
	require.Len(t, subjects, 3)
	assert.Equal(t, "Physics", subjects[0].Name)
	assert.Equal(t, "Art", subjects[1].Name)
	assert.Equal(t, Grade(99), subjects[1].Grade)
	assert.Equal(t, "Math", subjects[2].Name)
}

func TestAddOrUpdateSubject_RejectsInvalidGrade(t *testing.T) {
	tests := []struct {
		name  string
		grade Grade
	}{
		{name: "below range", grade: -1},
		{name: "above range", grade: 101},
		{name: "NaN", grade: Grade(math.NaN())},
		{name: "infinity", grade: Grade(math.Inf(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := New("s1", "Ann")
			require.NoError(t, s.AddOrUpdateSubject("Math", 80))

			err := s.AddOrUpdateSubject("Math", tt.grade)
			assert.ErrorIs(t, err, shared.ErrInvalidGrade)
			assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

			err = s.AddOrUpdateSubject("Biology", tt.grade)
			assert.ErrorIs(t, err, shared.ErrInvalidGrade)

			subjects := s.Subjects()
			require.Len(t, subjects, 1)
			assert.Equal(t, Grade(80), subjects[0].Grade)
		})
	}
}

func TestAddOrUpdateSubject_BoundsAreInclusive(t *testing.T) {
	s, _ := New("s1", "Ann")
	assert.NoError(t, s.AddOrUpdateSubject("Zero", 0))
	assert.NoError(t, s.AddOrUpdateSubject("Hundred", 100))
	assert.ErrorIs(t, s.AddOrUpdateSubject("  ", 50), shared.ErrInvalidSubject)
}

func TestAverageGrade(t *testing.T) {
	s, _ := New("s1", "Ann")
	assert.Equal(t, 0.0, s.AverageGrade())

	require.NoError(t, s.AddOrUpdateSubject("Math", 80))
	require.NoError(t, s.AddOrUpdateSubject("Science", 90))
	assert.Equal(t, 85.0, s.AverageGrade())
}

func TestSubjectLookup(t *testing.T) {
	s, _ := New("s1", "Ann")
	require.NoError(t, s.AddOrUpdateSubject("Biology", 75.5))

	sub, ok := s.Subject("BIOLOGY")
	require.True(t, ok)
	assert.Equal(t, Grade(75.5), sub.Grade)

	_, ok = s.Subject("Chemistry")
	assert.False(t, ok)
}

func TestSubjects_ReturnsCopy(t *testing.T) {
	s, _ := New("s1", "Ann")
	require.NoError(t, s.AddOrUpdateSubject("Math", 80))

	subjects := s.Subjects()
	subjects[0].Grade = 1

	sub, _ := s.Subject("Math")
	assert.Equal(t, Grade(80), sub.Grade)
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade(" 87.25 ")
	require.NoError(t, err)
	assert.Equal(t, Grade(87.25), g)

	for _, raw := range []string{"abc", "", "-0.5", "100.01", "NaN", "Inf"} {
		_, err := ParseGrade(raw)
		assert.ErrorIs(t, err, shared.ErrInvalidGrade, "raw=%q", raw)
	}
}

func TestDisplayStrings(t *testing.T) {
	s, _ := New("s1", "Ann")
	require.NoError(t, s.AddOrUpdateSubject("Math", 80))
	require.NoError(t, s.AddOrUpdateSubject("Science", 90))

	assert.Equal(t, "ID: s1 | Name: Ann | Average: 85.00", s.String())
	assert.Equal(t, "[Math: 80.00, Science: 90.00]", s.SubjectsString())
}

func TestClone(t *testing.T) {
	s, _ := New("s1", "Ann")
	require.NoError(t, s.AddOrUpdateSubject("Math", 80))

	c := s.Clone()
	require.NoError(t, c.AddOrUpdateSubject("Math", 10))

	sub, _ := s.Subject("Math")
	assert.Equal(t, Grade(80), sub.Grade)
}
