package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOCUMENT
// ══════════════════════════════════════════════════════════════════════════════

const snapshotVersion = 1

type snapshotDocument struct {
	Version  int               `json:"version"`
	Students []studentDocument `json:"students"`
}

type studentDocument struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Subjects []subjectDocument `json:"subjects,omitempty"`
}

type subjectDocument struct {
	Name  string  `json:"name"`
	Grade float64 `json:"grade"`
}

func toDocument(students []*student.Student) snapshotDocument {
	doc := snapshotDocument{
		Version:  snapshotVersion,
		Students: make([]studentDocument, 0, len(students)),
	}
	for _, st := range students {
		sd := studentDocument{ID: st.ID(), Name: st.Name()}
		for _, sub := range st.Subjects() {
			sd.Subjects = append(sd.Subjects, subjectDocument{Name: sub.Name, Grade: float64(sub.Grade)})
		}
		doc.Students = append(doc.Students, sd)
	}
	return doc
}

func fromDocument(doc snapshotDocument) ([]*student.Student, error) {
	if doc.Version != snapshotVersion {
		return nil, shared.ErrMalformedRecord.Wrap(fmt.Errorf("unsupported snapshot version %d", doc.Version))
	}

	students := make([]*student.Student, 0, len(doc.Students))
	for i, sd := range doc.Students {
		st, err := student.New(sd.ID, sd.Name)
		if err != nil {
			return nil, shared.ErrMalformedRecord.Wrap(fmt.Errorf("student %d: %w", i, err))
		}
		for _, sub := range sd.Subjects {
			if err := st.AddOrUpdateSubject(sub.Name, student.Grade(sub.Grade)); err != nil {
				return nil, shared.ErrMalformedRecord.Wrap(fmt.Errorf("student %s: %w", st.ID(), err))
			}
		}
		students = append(students, st)
	}
	return students, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT STORE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotStore implements roster.Store by keeping the whole roster as one
// JSON document plus a metadata hash, both written in a MULTI/EXEC block.
type SnapshotStore struct {
	cache *Cache
	log   *logger.Logger
	now   func() time.Time
}

// NewSnapshotStore creates a snapshot store on top of cache.
func NewSnapshotStore(cache *Cache, log *logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotStore{
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

func (s *SnapshotStore) logger(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, s.log).With(logger.Backend("redis"))
}

// SnapshotKey is where the JSON document lives.
func (s *SnapshotStore) SnapshotKey() string { return s.cache.Key("snapshot") }

// MetaKey is the hash holding id, count and saved_at of the last save.
func (s *SnapshotStore) MetaKey() string { return s.cache.Key("snapshot", "meta") }

// Load reads the snapshot document. A missing key yields shared.ErrSnapshotMissing.
func (s *SnapshotStore) Load(ctx context.Context) ([]*student.Student, error) {
	var doc snapshotDocument
	if err := s.cache.Get(ctx, s.SnapshotKey(), &doc); err != nil {
		switch {
		case errors.Is(err, ErrCacheMiss):
			return nil, shared.ErrSnapshotMissing
		case errors.Is(err, ErrCacheSerialization):
			return nil, shared.ErrMalformedRecord.Wrap(err)
		default:
			return nil, fmt.Errorf("get snapshot: %w", err)
		}
	}

	students, err := fromDocument(doc)
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Debug("snapshot loaded", logger.Count(len(students)))
	return students, nil
}

// Save writes the document and its metadata atomically.
func (s *SnapshotStore) Save(ctx context.Context, students []*student.Student) error {
	data, err := json.Marshal(toDocument(students))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	id := uuid.NewString()
	_, err = s.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.SnapshotKey(), data, 0)
		pipe.HSet(ctx, s.MetaKey(),
			"id", id,
			"count", len(students),
			"saved_at", s.now().UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.logger(ctx).Debug("snapshot saved", logger.String("snapshot_id", id), logger.Count(len(students)))
	return nil
}

// Meta describes the last saved snapshot.
type Meta struct {
	ID      string
	Count   int
	SavedAt time.Time
}

// Meta returns metadata of the last save, or shared.ErrSnapshotMissing.
func (s *SnapshotStore) Meta(ctx context.Context) (*Meta, error) {
	fields, err := s.cache.HGetAll(ctx, s.MetaKey())
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, shared.ErrSnapshotMissing
	}

	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, shared.ErrMalformedRecord.Wrap(err)
	}
	savedAt, err := time.Parse(time.RFC3339, fields["saved_at"])
	if err != nil {
		return nil, shared.ErrMalformedRecord.Wrap(err)
	}
	return &Meta{ID: fields["id"], Count: count, SavedAt: savedAt}, nil
}
