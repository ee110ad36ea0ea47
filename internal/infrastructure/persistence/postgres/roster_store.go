package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER STORE
// ══════════════════════════════════════════════════════════════════════════════

// RosterStore implements roster.Store over the roster_* tables.
// Every Save also records a row in roster_snapshots; Load treats an empty
// roster_snapshots table as "nothing persisted yet".
type RosterStore struct {
	conn *Connection
	log  *logger.Logger
	now  func() time.Time
}

// NewRosterStore creates a new PostgreSQL roster store.
func NewRosterStore(conn *Connection, log *logger.Logger) *RosterStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RosterStore{
		conn: conn,
		log:  log,
		now:  time.Now,
	}
}

func (s *RosterStore) logger(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, s.log).With(logger.Backend("postgres"))
}

// SnapshotInfo describes the latest saved snapshot.
type SnapshotInfo struct {
	ID           uuid.UUID
	StudentCount int
	SavedAt      time.Time
}

// LatestSnapshot returns metadata for the most recent Save.
func (s *RosterStore) LatestSnapshot(ctx context.Context) (*SnapshotInfo, error) {
	return latestSnapshot(ctx, s.conn)
}

func latestSnapshot(ctx context.Context, q Querier) (*SnapshotInfo, error) {
	var info SnapshotInfo
	err := q.QueryRow(ctx, `
		SELECT id, student_count, saved_at
		FROM roster_snapshots
		ORDER BY saved_at DESC
		LIMIT 1
	`).Scan(&info.ID, &info.StudentCount, &info.SavedAt)
	if err != nil {
		if IsNoRows(err) || IsUndefinedTable(err) {
			return nil, shared.ErrSnapshotMissing
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return &info, nil
}

// Load reads all students in saved order inside one read-only snapshot.
func (s *RosterStore) Load(ctx context.Context) ([]*student.Student, error) {
	var students []*student.Student

	err := s.conn.WithTx(ctx, SnapshotTxOptions(), func(tx pgx.Tx) error {
		info, err := latestSnapshot(ctx, tx)
		if err != nil {
			return err
		}

		students, err = loadStudents(ctx, tx)
		if err != nil {
			return err
		}

		s.logger(ctx).Debug("snapshot loaded",
			logger.String("snapshot_id", info.ID.String()),
			logger.Count(len(students)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return students, nil
}

func loadStudents(ctx context.Context, q Querier) ([]*student.Student, error) {
	rows, err := q.Query(ctx, `SELECT id, name FROM roster_students ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}

	var students []*student.Student
	byID := make(map[string]*student.Student)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		students = append(students, st)
		byID[st.ID()] = st
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	subRows, err := q.Query(ctx, `
		SELECT student_id, name, grade
		FROM roster_subjects
		ORDER BY student_id, position
	`)
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

	return students, subRows.Err()
}

// scanStudent scans a row into a Student entity.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var id, name string
	if err := row.Scan(&id, &name); err != nil {
		return nil, fmt.Errorf("scan student: %w", err)
	}
	st, err := student.New(id, name)
	if err != nil {
		return nil, shared.ErrMalformedRecord.Wrap(err)
	}
	return st, nil
}

// Save replaces the stored roster in one transaction using COPY for bulk inserts.
// Rows rejected by a unique or check constraint yield shared.ErrMalformedRecord.
func (s *RosterStore) Save(ctx context.Context, students []*student.Student) error {
	snapshotID := uuid.New()
	var studentCount, subjectCount int64

	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM roster_subjects`); err != nil {
			return fmt.Errorf("clear subjects: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM roster_students`); err != nil {
			return fmt.Errorf("clear students: %w", err)
		}

		studentRows := make([][]any, 0, len(students))
		var subjectRows [][]any
		for pos, st := range students {
			studentRows = append(studentRows, []any{st.ID(), st.Name(), pos})
			for i, sub := range st.Subjects() {
				subjectRows = append(subjectRows, []any{st.ID(), i, sub.Name, float64(sub.Grade)})
			}
		}

		var err error
		studentCount, err = tx.CopyFrom(ctx,
			pgx.Identifier{"roster_students"},
			[]string{"id", "name", "position"},
			pgx.CopyFromRows(studentRows),
		)
		if err != nil {
			return fmt.Errorf("copy students: %w", err)
		}

		subjectCount, err = tx.CopyFrom(ctx,
			pgx.Identifier{"roster_subjects"},
			[]string{"student_id", "position", "name", "grade"},
			pgx.CopyFromRows(subjectRows),
		)
		if err != nil {
			return fmt.Errorf("copy subjects: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO roster_snapshots (id, student_count, saved_at) VALUES ($1, $2, $3)`,
			snapshotID, len(students), s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return saveError(err)
	}

	s.logger(ctx).Debug("snapshot saved",
		logger.String("snapshot_id", snapshotID.String()),
		logger.Int64("students", studentCount),
		logger.Int64("subjects", subjectCount),
	)
	return nil
}

// saveError marks constraint violations as bad data rather than storage failures.
func saveError(err error) error {
	if IsUniqueViolation(err) || IsCheckViolation(err) {
		return shared.ErrMalformedRecord.Wrap(err)
	}
	return err
}
