package student

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alem-hub/student-roster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEXT ENCODING
// ══════════════════════════════════════════════════════════════════════════════

const (
	fieldSeparator = "\t"
	gradeSeparator = "="
)

// escaper экранирует символы, которые имеют смысл в строковом формате.
// '%' экранируется первым проходом Replacer, поэтому декодирование однозначно.
var escaper = strings.NewReplacer(
	"%", "%25",
	"\t", "%09",
	"\n", "%0A",
	"\r", "%0D",
	"=", "%3D",
	"#", "%23",
)

func escapeField(s string) string {
	return escaper.Replace(s)
}

func unescapeField(s string) (string, error) {
	return url.PathUnescape(s)
}

// MarshalText кодирует студента в одну строку без перевода строки.
// Оценки записываются кратчайшей точной десятичной формой.
func (s *Student) MarshalText() ([]byte, error) {
	var b strings.Builder

	b.WriteString(escapeField(s.id))
	b.WriteString(fieldSeparator)
	b.WriteString(escapeField(s.name))

	for _, sub := range s.subjects {
		b.WriteString(fieldSeparator)
		b.WriteString(escapeField(sub.Name))
		b.WriteString(gradeSeparator)
		b.WriteString(strconv.FormatFloat(float64(sub.Grade), 'f', -1, 64))
	}

	return []byte(b.String()), nil
}

// UnmarshalText декодирует строку, записанную MarshalText.
// Любое нарушение формата или инвариантов даёт ErrMalformedRecord.
func (s *Student) UnmarshalText(text []byte) error {
	line := strings.TrimRight(string(text), "\r\n")
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < 2 {
		return shared.ErrMalformedRecord.Wrap(fmt.Errorf("expected at least 2 fields, got %d", len(fields)))
	}

	id, err := unescapeField(fields[0])
	if err != nil {
		return shared.ErrMalformedRecord.Wrap(fmt.Errorf("id: %w", err))
	}
	name, err := unescapeField(fields[1])
	if err != nil {
		return shared.ErrMalformedRecord.Wrap(fmt.Errorf("name: %w", err))
	}

	decoded, err := New(id, name)
	if err != nil {
		return shared.ErrMalformedRecord.Wrap(err)
	}

	for i, field := range fields[2:] {
		rawName, rawGrade, ok := strings.Cut(field, gradeSeparator)
		if !ok {
			return shared.ErrMalformedRecord.Wrap(fmt.Errorf("subject %d: missing %q", i+1, gradeSeparator))
		}
		subjectName, err := unescapeField(rawName)
		if err != nil {
			return shared.ErrMalformedRecord.Wrap(fmt.Errorf("subject %d: %w", i+1, err))
		}
		grade, err := ParseGrade(rawGrade)
		if err != nil {
			return shared.ErrMalformedRecord.Wrap(fmt.Errorf("subject %q: %w", subjectName, err))
		}
		if err := decoded.AddOrUpdateSubject(subjectName, grade); err != nil {
			return shared.ErrMalformedRecord.Wrap(fmt.Errorf("subject %d: %w", i+1, err))
		}
	}

	*s = *decoded
	return nil
}

// ParseLine декодирует одну строку хранилища в нового студента.
func ParseLine(line string) (*Student, error) {
	var s Student
	if err := s.UnmarshalText([]byte(line)); err != nil {
		return nil, err
	}
	return &s, nil
}
