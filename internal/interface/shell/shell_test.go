package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/file"
	"github.com/alem-hub/student-roster/pkg/logger"
)

type failingStore struct{}

func (failingStore) Load(context.Context) ([]*student.Student, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, []*student.Student) error {
	return errors.New("disk on fire")
}

// loggingStore writes through whatever logger the caller put in ctx.
type loggingStore struct{}

func (loggingStore) Load(ctx context.Context) ([]*student.Student, error) {
	logger.FromContext(ctx, nil).Info("store load")
	return nil, shared.ErrSnapshotMissing
}

func (loggingStore) Save(ctx context.Context, _ []*student.Student) error {
	logger.FromContext(ctx, nil).Info("store save")
	return nil
}

func session(t *testing.T, r *roster.Roster, store roster.Store, opts Options, lines ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	err := New(r, store, in, &out, logger.Nop(), opts).Run(context.Background())
	return out.String(), err
}

func newFileStore(t *testing.T) *file.Store {
	t.Helper()
	return file.New(filepath.Join(t.TempDir(), "students.txt"), logger.Nop())
}

func TestShell_AddUpdateViewAndSaveOnExit(t *testing.T) {
	store := newFileStore(t)
	r := roster.New()

	out, err := session(t, r, store, Options{SaveOnExit: true},
		"1", "s1", "Ann",
		"1", "s1", "Bob",
		"3", "s1", "Math", "85",
		"4",
		"8",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Student Management System")
	assert.Contains(t, out, MsgStudentAdded)
	assert.Contains(t, out, MsgStudentExists)
	assert.Contains(t, out, MsgGradeUpdated)
	assert.Contains(t, out, "[Math: 85.00]")
	assert.Contains(t, out, MsgDataSaved)
	assert.True(t, strings.HasSuffix(out, MsgExiting+"\n"))

	restored := roster.New()
	loaded, err := restored.Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, loaded)
	s, ok := restored.Find("s1")
	require.True(t, ok)
	assert.Equal(t, "Ann", s.Name())
	assert.Equal(t, 85.0, s.AverageGrade())
}

func TestShell_RemoveStudent(t *testing.T) {
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann"))

	out, err := session(t, r, nil, Options{},
		"2", "s1",
		"2", "s1",
		"8",
	)
	require.NoError(t, err)
	assert.Contains(t, out, MsgStudentRemoved)
	assert.Contains(t, out, MsgStudentNotFound)
	assert.True(t, r.IsEmpty())
}

func TestShell_UpdateGradeErrors(t *testing.T) {
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann"))

	out, err := session(t, r, nil, Options{},
		"3", "nobody",
		"3", "s1", "Math", "120",
		"3", "s1", "Math", "lots",
		"3", "s1", "", "50",
		"8",
	)
	require.NoError(t, err)
	assert.Contains(t, out, MsgStudentNotFound)
	assert.Equal(t, 2, strings.Count(out, MsgInvalidGrade))
	assert.Contains(t, out, MsgInvalidInput)

	s, _ := r.Find("s1")
	assert.Empty(t, s.Subjects())
}

func TestShell_AddValidation(t *testing.T) {
	r := roster.New()
	out, err := session(t, r, nil, Options{}, "1", "", "Ann", "8")
	require.NoError(t, err)
	assert.Contains(t, out, MsgInvalidInput)
	assert.True(t, r.IsEmpty())
}

func TestShell_Reports(t *testing.T) {
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann"))
	require.NoError(t, r.Add("s2", "Bob"))
	require.NoError(t, r.UpdateGrade("s1", "Math", 70))
	require.NoError(t, r.UpdateGrade("s2", "Math", 90))

	out, err := session(t, r, nil, Options{},
		"5", "1",
		"5", "2", "math",
		"5", "2", "Art",
		"5", "3",
		"5", "7",
		"8",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "ID: s1 | Name: Ann | Average: 70.00")
	assert.Contains(t, out, "Highest in Math: Bob (s2) with 90.00")
	assert.Contains(t, out, "Lowest in Math: Ann (s1) with 70.00")
	assert.Contains(t, out, MsgNoSubjectGrades)
	assert.Contains(t, out, "Class average: 80.00")

	sorted := out[strings.Index(out, MsgNoSubjectGrades):strings.Index(out, "Class average")]
	assert.Less(t, strings.Index(sorted, "Bob"), strings.Index(sorted, "Ann"))
	assert.Contains(t, out, MsgInvalidChoice)
}

func TestShell_ReportsOnEmptyRoster(t *testing.T) {
	out, err := session(t, roster.New(), nil, Options{}, "5", "1", "4", "8")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, MsgNoStudents))
}

func TestShell_LoadMissingAndExisting(t *testing.T) {
	store := newFileStore(t)
	r := roster.New()
	require.NoError(t, r.Add("stale", "Old"))

	out, err := session(t, r, store, Options{}, "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, MsgDataFileNotFound)
	assert.True(t, r.IsEmpty())

	seed := roster.New()
	require.NoError(t, seed.Add("s1", "Ann"))
	require.NoError(t, seed.Save(context.Background(), store))

	out, err = session(t, r, store, Options{}, "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, MsgDataLoaded)
	assert.Equal(t, 1, r.Len())
}

func TestShell_SaveFailureOnExit(t *testing.T) {
	r := roster.New()
	out, err := session(t, r, failingStore{}, Options{SaveOnExit: true}, "6", "8")

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrSaveFailed)
	assert.Equal(t, 2, strings.Count(out, "Save failed: "))
	assert.Contains(t, out, MsgExiting)
}

func TestShell_FailedLoadKeepsSnapshotOnExit(t *testing.T) {
	store := newFileStore(t)
	damaged := "s1\tAnn\tMath=80\ns2\tBob\tMath=150\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(damaged), 0o644))

	r := roster.New()
	out, err := session(t, r, store, Options{SaveOnExit: true}, "7", "8")
	require.NoError(t, err)

	assert.Contains(t, out, "Load failed: ")
	assert.Contains(t, out, MsgExitSaveSkipped)
	assert.NotContains(t, out, MsgDataSaved)
	assert.True(t, r.IsEmpty())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, damaged, string(data))
}

func TestShell_ExplicitSaveAfterFailedLoad(t *testing.T) {
	store := newFileStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("only-an-id\n"), 0o644))

	r := roster.New()
	out, err := session(t, r, store, Options{SaveOnExit: true},
		"7",
		"1", "s9", "Zed",
		"6",
		"8",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, MsgDataSaved))
	assert.NotContains(t, out, MsgExitSaveSkipped)

	restored := roster.New()
	_, err = restored.Load(context.Background(), store)
	require.NoError(t, err)
	_, ok := restored.Find("s9")
	assert.True(t, ok)
}

func TestShell_LoadFailureReported(t *testing.T) {
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann"))

	out, err := session(t, r, failingStore{}, Options{}, "7", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Load failed: ")
	assert.True(t, r.IsEmpty())
}

func TestShell_StoreLogsCarrySession(t *testing.T) {
	var logs, out bytes.Buffer
	log := logger.New(logger.Options{Output: &logs, Level: logger.LevelInfo})

	err := New(roster.New(), loggingStore{}, strings.NewReader("7\n6\n8\n"), &out, log, Options{}).
		Run(context.Background())
	require.NoError(t, err)

	var storeLines []string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `"message":"store `) {
			storeLines = append(storeLines, line)
		}
	}
	require.Len(t, storeLines, 2)
	for _, line := range storeLines {
		assert.Contains(t, line, `"session_id":"`)
		assert.Contains(t, line, `"component":"shell"`)
	}
}

func TestShell_EndOfInputExits(t *testing.T) {
	store := newFileStore(t)
	r := roster.New()

	var out bytes.Buffer
	err := New(r, store, strings.NewReader("1\ns1\nAnn\n1\ns2"), &out, logger.Nop(), Options{SaveOnExit: true}).
		Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, out.String(), MsgDataSaved)
	assert.Contains(t, out.String(), MsgExiting)
	assert.Equal(t, 1, r.Len())

	restored := roster.New()
	_, err = restored.Load(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())
}

func TestShell_InvalidChoice(t *testing.T) {
	out, err := session(t, roster.New(), nil, Options{}, "42", "")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, MsgInvalidChoice))
}

func TestShell_CancelledContextSavesAndExits(t *testing.T) {
	store := newFileStore(t)
	r := roster.New()
	require.NoError(t, r.Add("s1", "Ann"))

	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(r, store, pr, &out, logger.Nop(), Options{SaveOnExit: true}).Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, out.String(), MsgDataSaved)

	restored := roster.New()
	loaded, err := restored.Load(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, loaded)
}
