package roster

import (
	"context"
	"errors"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store - порт хранилища снимков roster.
// Реализации находятся в infrastructure/persistence.
type Store interface {
	// Load возвращает студентов в сохранённом порядке.
	// Если снимка нет, возвращает shared.ErrSnapshotMissing.
	Load(ctx context.Context) ([]*student.Student, error)

	// Save атомарно заменяет снимок. При ошибке предыдущий снимок остаётся целым.
	Save(ctx context.Context, students []*student.Student) error
}

// Load заменяет содержимое roster снимком из store.
//
// Отсутствующий снимок не является ошибкой: roster становится пустым,
// loaded = false. Любая другая ошибка оборачивается в ErrLoadFailed,
// и roster тоже остаётся пустым. Дублирующиеся ID считаются повреждением.
func (r *Roster) Load(ctx context.Context, store Store) (loaded bool, err error) {
	r.Reset()

	students, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrSnapshotMissing) {
			return false, nil
		}
		return false, shared.ErrLoadFailed.Wrap(err)
	}

	for _, s := range students {
		if s == nil {
			continue
		}
		if err := r.insert(s.Clone()); err != nil {
			r.Reset()
			return false, shared.ErrLoadFailed.Wrap(shared.ErrMalformedRecord.Wrap(err))
		}
	}
	return true, nil
}

// Save сохраняет текущий снимок в порядке All().
func (r *Roster) Save(ctx context.Context, store Store) error {
	if err := store.Save(ctx, r.All()); err != nil {
		return shared.ErrSaveFailed.Wrap(err)
	}
	return nil
}
