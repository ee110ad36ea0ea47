package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
)

func sampleRoster(t *testing.T) *roster.Roster {
	t.Helper()
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann Lee"))
	require.NoError(t, r.Add("s2", "Bob"))
	require.NoError(t, r.Add("#3", "Tab\tHolder"))
	require.NoError(t, r.UpdateGrade("s1", "Math", 80))
	require.NoError(t, r.UpdateGrade("s1", "Science", 90.125))
	require.NoError(t, r.UpdateGrade("#3", "a=b", 0.1))
	return r
}

// view flattens a roster into comparable values.
func view(r *roster.Roster) []string {
	var out []string
	for _, s := range r.All() {
		out = append(out, s.ID()+"|"+s.Name())
		for _, sub := range s.Subjects() {
			out = append(out, fmt.Sprintf("  %s=%v", sub.Name, float64(sub.Grade)))
		}
	}
	return out
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "students.txt"), nil)

	original := sampleRoster(t)
	require.NoError(t, original.Save(ctx, store))

	restored := roster.New()
	loaded, err := restored.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded)

	if diff := cmp.Diff(view(original), view(restored)); diff != "" {
		t.Errorf("roster mismatch after round trip (-want +got):\n%s", diff)
	}

	s, ok := restored.Find("s1")
	require.True(t, ok)
	sub, _ := s.Subject("science")
	assert.Equal(t, student.Grade(90.125), sub.Grade)
}

func TestSaveLoad_LineLongerThanOneMiB(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "students.txt"), nil)

	r := roster.New()
	require.NoError(t, r.Add("s1", strings.Repeat("N", 2<<20)))
	for i := 0; i < 50; i++ {
		require.NoError(t, r.UpdateGrade("s1", fmt.Sprintf("Subject%02d", i), 75))
	}
	require.NoError(t, r.Add("s2", "Bob"))
	require.NoError(t, r.Save(ctx, store))

	restored := roster.New()
	loaded, err := restored.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded)
	require.Equal(t, 2, restored.Len())

	s1, ok := restored.Find("s1")
	require.True(t, ok)
	assert.Len(t, s1.Name(), 2<<20)
	assert.Len(t, s1.Subjects(), 50)
}

func TestDecode_NoTrailingNewline(t *testing.T) {
	students, err := Decode([]byte("s1\tAnn\tMath=80\ns2\tBob"))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Bob", students[1].Name())
}

func TestSave_EmptyRoster(t *testing.T) {
	ctx := context.Background()
	store := New(filepath.Join(t.TempDir(), "students.txt"), nil)
	require.NoError(t, roster.New().Save(ctx, store))

	r := roster.New()
	loaded, err := r.Load(ctx, store)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.True(t, r.IsEmpty())
}

func TestLoad_MissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "absent.txt"), nil)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrSnapshotMissing)

	r := sampleRoster(t)
	loaded, err := r.Load(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, loaded)
	assert.True(t, r.IsEmpty())
}

func TestLoad_HandWrittenFileWithoutHeaderOrChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	require.NoError(t, os.WriteFile(path, []byte("s1\tAnn\tMath=70\n\ns2\tBob\r\n"), 0o600))

	students, err := New(path, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Bob", students[1].Name())
	assert.Equal(t, 70.0, students[0].AverageGrade())
}

func TestLoad_TamperedChecksum(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.txt")
	store := New(path, nil)
	require.NoError(t, sampleRoster(t).Save(ctx, store))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), "Math=80", "Math=99", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	r := sampleRoster(t)
	_, err = r.Load(ctx, store)
	assert.ErrorIs(t, err, shared.ErrLoadFailed)
	assert.True(t, r.IsEmpty())
}

func TestLoad_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	require.NoError(t, os.WriteFile(path, []byte("# roster v1\ns1\tAnn\tMath=abc\n"), 0o600))

	_, err := New(path, nil).Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoad_DuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.txt")
	require.NoError(t, os.WriteFile(path, []byte("s1\tAnn\ns1\tBob\n"), 0o600))

	r := roster.New()
	_, err := r.Load(context.Background(), New(path, nil))
	assert.ErrorIs(t, err, shared.ErrLoadFailed)
	assert.True(t, r.IsEmpty())
}

func TestSave_FailureKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "students.txt")
	store := New(path, nil)
	require.NoError(t, sampleRoster(t).Save(ctx, store))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, roster.New().Save(cancelled, store))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSave_RenameFailureLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

	err := roster.New().Save(context.Background(), New(target, nil))
	assert.ErrorIs(t, err, shared.ErrSaveFailed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "occupied", entries[0].Name())
}

func TestEncode_Layout(t *testing.T) {
	s, err := student.New("s1", "Ann")
	require.NoError(t, err)
	require.NoError(t, s.AddOrUpdateSubject("Math", 80))

	data, err := Encode([]*student.Student{s})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, header, lines[0])
	assert.Equal(t, "s1\tAnn\tMath=80", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], sumPrefix))
	assert.Len(t, strings.TrimPrefix(lines[2], sumPrefix), 64)
}
