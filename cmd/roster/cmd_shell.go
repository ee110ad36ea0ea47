package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/interface/shell"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// runShell загружает roster и запускает интерактивное меню.
func runShell(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	r := roster.New()
	if err := loadInto(ctx, r, store, cmd.OutOrStdout()); err != nil {
		return err
	}

	sh := shell.New(r, store, cmd.InOrStdin(), cmd.OutOrStdout(), log, shell.Options{
		SaveOnExit:       cfg.App.SaveOnExit,
		OperationTimeout: cfg.App.OperationTimeout,
	})
	return sh.Run(ctx)
}

// loadInto загружает снимок и печатает уведомление, если его ещё нет.
// Ошибка загрузки останавливает запуск: иначе сохранение при выходе
// перезаписало бы повреждённый снимок пустым списком.
func loadInto(ctx context.Context, r *roster.Roster, store roster.Store, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.App.OperationTimeout)
	defer cancel()

	loaded, err := r.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	if !loaded {
		fmt.Fprintln(out, shell.MsgDataFileNotFound)
	}
	return nil
}

// openRoster открывает хранилище и загружает из него roster.
func openRoster(cmd *cobra.Command) (*roster.Roster, roster.Store, func(), error) {
	ctx := commandContext(cmd)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}

	r := roster.New()
	if err := loadInto(ctx, r, store, cmd.ErrOrStderr()); err != nil {
		closeStore()
		return nil, nil, nil, err
	}
	return r, store, closeStore, nil
}

// commandContext возвращает контекст команды с логгером, названным по
// имени команды. Хранилища берут логгер из этого контекста.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return logger.WithContext(ctx, log.Named(cmd.Name()))
}
