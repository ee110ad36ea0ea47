// Package sqlite stores the roster in a local SQLite database (pure Go driver).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
	student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	grade      REAL NOT NULL CHECK (grade >= 0 AND grade <= 100),
	PRIMARY KEY (student_id, position)
);
`

// Store implements roster.Store on a SQLite database file.
// The connection is opened on first use; call Close when done.
type Store struct {
	path string
	db   *sql.DB
	log  *logger.Logger
}

// New creates a store for the database at path. Nothing is touched on disk
// until the first Save.
func New(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) logger(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, s.log).With(logger.Backend("sqlite"), logger.Path(s.path))
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		s.logger(ctx).Debug("failed to set busy_timeout", logger.Err(err))
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s.db = db
	return db, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Load reads all students ordered by position. A missing database file
// yields shared.ErrSnapshotMissing.
func (s *Store) Load(ctx context.Context) ([]*student.Student, error) {
	if s.db == nil {
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrSnapshotMissing
		}
	}

	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM students ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}

	var students []*student.Student
	byID := make(map[string]*student.Student)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan student: %w", err)
		}
		st, err := student.New(id, name)
		if err != nil {
			rows.Close()
			return nil, shared.ErrMalformedRecord.Wrap(err)
		}
		students = append(students, st)
		byID[st.ID()] = st
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	subRows, err := db.QueryContext(ctx,
		`SELECT student_id, name, grade FROM subjects ORDER BY student_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer subRows.Close()

	for subRows.Next() {
		var studentID, name string
		var grade float64
		if err := subRows.Scan(&studentID, &name, &grade); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		st, ok := byID[studentID]
		if !ok {
			return nil, shared.ErrMalformedRecord.Wrap(fmt.Errorf("subject %q references unknown student %q", name, studentID))
		}
		if err := st.AddOrUpdateSubject(name, student.Grade(grade)); err != nil {
			return nil, shared.ErrMalformedRecord.Wrap(err)
		}
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}

	s.logger(ctx).Debug("snapshot loaded", logger.Count(len(students)))
	return students, nil
}

// Save replaces all rows in a single transaction.
func (s *Store) Save(ctx context.Context, students []*student.Student) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects`); err != nil {
		return fmt.Errorf("clear subjects: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students`); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}

	insertStudent, err := tx.PrepareContext(ctx, `INSERT INTO students (id, name, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare student insert: %w", err)
	}
	defer insertStudent.Close()

	insertSubject, err := tx.PrepareContext(ctx,
		`INSERT INTO subjects (student_id, position, name, grade) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare subject insert: %w", err)
	}
	defer insertSubject.Close()

	for pos, st := range students {
		if _, err := insertStudent.ExecContext(ctx, st.ID(), st.Name(), pos); err != nil {
			return fmt.Errorf("insert student %s: %w", st.ID(), err)
		}
		for i, sub := range st.Subjects() {
			if _, err := insertSubject.ExecContext(ctx, st.ID(), i, sub.Name, float64(sub.Grade)); err != nil {
				return fmt.Errorf("insert subject %s/%s: %w", st.ID(), sub.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.logger(ctx).Debug("snapshot saved", logger.Count(len(students)))
	return nil
}
