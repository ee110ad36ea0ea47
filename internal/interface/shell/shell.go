// Package shell реализует интерактивное текстовое меню над Roster.
//
// Каждая команда меню соответствует ровно одной операции Roster или Student.
// Shell - единственное место, где ошибки доменного слоя превращаются в
// сообщения для пользователя. Конец ввода (EOF) обрабатывается как Exit.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

const (
	MsgStudentAdded     = "Student added."
	MsgStudentExists    = "Student already exists."
	MsgStudentRemoved   = "Student removed."
	MsgStudentNotFound  = "Student not found."
	MsgGradeUpdated     = "Grade updated."
	MsgInvalidGrade     = "Invalid grade."
	MsgInvalidInput     = "ID, name and subject cannot be empty."
	MsgNoStudents       = "No students registered yet."
	MsgNoSubjectGrades  = "No grades found for that subject."
	MsgInvalidChoice    = "Invalid choice."
	MsgDataSaved        = "Data saved."
	MsgDataLoaded       = "Data loaded."
	MsgDataFileNotFound = "Data file not found. Starting with empty list."
	MsgExiting          = "Exiting..."
	MsgExitSaveSkipped  = "Last load failed, data not saved on exit. Choose 6 to save anyway."
)

// errEndOfInput сигнализирует, что ввод закончился или сессия прервана.
var errEndOfInput = errors.New("end of input")

// ══════════════════════════════════════════════════════════════════════════════
// SHELL
// ══════════════════════════════════════════════════════════════════════════════

// Options настраивает поведение Shell.
type Options struct {
	// SaveOnExit сохраняет roster при выходе (пункт 8 или EOF).
	SaveOnExit bool

	// OperationTimeout ограничивает одно сохранение или загрузку. 0 - без ограничения.
	OperationTimeout time.Duration
}

// Shell - цикл меню поверх io.Reader/io.Writer.
type Shell struct {
	roster    *roster.Roster
	store     roster.Store
	in        io.Reader
	lines     <-chan string
	out       io.Writer
	presenter *Presenter
	log       *logger.Logger
	opts      Options

	// loadFailed выставляется неудачной загрузкой и снимается успешной
	// загрузкой или сохранением. Пока он выставлен, выход не сохраняет
	// пустой roster поверх снимка, который не удалось прочитать.
	loadFailed bool
}

// New создаёт Shell. Roster передаётся явно и принадлежит вызывающему.
func New(r *roster.Roster, store roster.Store, in io.Reader, out io.Writer, log *logger.Logger, opts Options) *Shell {
	if log == nil {
		log = logger.Nop()
	}
	return &Shell{
		roster:    r,
		store:     store,
		in:        in,
		out:       out,
		presenter: NewPresenter(out),
		log:       log.WithSessionID(uuid.NewString()).With(logger.Component("shell")),
		opts:      opts,
	}
}

// Run выполняет цикл меню до выхода. Отмена ctx (например, по Ctrl+C)
// тоже считается выходом. Возвращает ошибку только если не удалось
// сохранить данные при выходе.
func (s *Shell) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	s.lines = readLines(s.in, done)

	s.log.Info("session started", logger.Count(s.roster.Len()))

	for {
		s.print(s.presenter.MainMenu())
		choice, err := s.prompt(ctx, "Enter your choice: ")
		if err != nil {
			return s.exit(ctx)
		}

		switch choice {
		case "1":
			err = s.addStudent(ctx)
		case "2":
			err = s.removeStudent(ctx)
		case "3":
			err = s.updateGrade(ctx)
		case "4":
			s.viewAll()
		case "5":
			err = s.reports(ctx)
		case "6":
			s.save(ctx)
		case "7":
			s.load(ctx)
		case "8":
			return s.exit(ctx)
		default:
			s.println(MsgInvalidChoice)
		}

		if errors.Is(err, errEndOfInput) {
			return s.exit(ctx)
		}
	}
}

// readLines читает ввод построчно в отдельной горутине, чтобы prompt
// мог одновременно ждать отмены контекста.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// ─────────────────────────────────────────────────────────────────────────────
// COMMANDS
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) addStudent(ctx context.Context) error {
	id, err := s.prompt(ctx, "Enter student ID: ")
	if err != nil {
		return err
	}
	name, err := s.prompt(ctx, "Enter student name: ")
	if err != nil {
		return err
	}

	err = s.roster.Add(id, name)
	s.report("add", err, logger.StudentID(id))
	s.println(s.message(err, MsgStudentAdded))
	return nil
}

func (s *Shell) removeStudent(ctx context.Context) error {
	id, err := s.prompt(ctx, "Enter student ID to remove: ")
	if err != nil {
		return err
	}

	err = s.roster.Remove(id)
	s.report("remove", err, logger.StudentID(id))
	s.println(s.message(err, MsgStudentRemoved))
	return nil
}

func (s *Shell) updateGrade(ctx context.Context) error {
	id, err := s.prompt(ctx, "Enter student ID: ")
	if err != nil {
		return err
	}
	if _, ok := s.roster.Find(id); !ok {
		s.println(MsgStudentNotFound)
		return nil
	}

	subject, err := s.prompt(ctx, "Enter subject: ")
	if err != nil {
		return err
	}
	raw, err := s.prompt(ctx, "Enter grade: ")
	if err != nil {
		return err
	}

	grade, err := student.ParseGrade(raw)
	if err == nil {
		err = s.roster.UpdateGrade(id, subject, grade)
	}
	s.report("update_grade", err, logger.StudentID(id), logger.Subject(subject), logger.Grade(float64(grade)))
	s.println(s.message(err, MsgGradeUpdated))
	return nil
}

func (s *Shell) viewAll() {
	if s.roster.IsEmpty() {
		s.println(MsgNoStudents)
		return
	}
	s.println(s.presenter.StudentsTable(s.roster.All()))
}

func (s *Shell) reports(ctx context.Context) error {
	s.print(s.presenter.ReportsMenu())
	choice, err := s.prompt(ctx, "Enter your choice: ")
	if err != nil {
		return err
	}

	switch choice {
	case "1", "2", "3":
	default:
		s.println(MsgInvalidChoice)
		return nil
	}

	if s.roster.IsEmpty() {
		s.println(MsgNoStudents)
		return nil
	}

	switch choice {
	case "1":
		s.print(s.presenter.Averages(s.roster.All()))
	case "2":
		subject, err := s.prompt(ctx, "Enter subject: ")
		if err != nil {
			return err
		}
		ext, ok := s.roster.SubjectExtremes(subject)
		if !ok {
			s.println(MsgNoSubjectGrades)
			return nil
		}
		s.print(s.presenter.Extremes(ext))
	case "3":
		s.print(s.presenter.Ranking(s.roster.Ranking(), s.roster.Summarize()))
	}
	return nil
}

func (s *Shell) save(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := s.roster.Save(ctx, s.store)
	s.report("save", err, logger.Count(s.roster.Len()), logger.Latency(time.Since(start)))
	if err != nil {
		s.println("Save failed: " + err.Error())
		return err
	}
	s.loadFailed = false
	s.println(MsgDataSaved)
	return nil
}

func (s *Shell) load(ctx context.Context) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	loaded, err := s.roster.Load(ctx, s.store)
	s.report("load", err, logger.Count(s.roster.Len()), logger.Latency(time.Since(start)))
	s.loadFailed = err != nil
	switch {
	case err != nil:
		s.println("Load failed: " + err.Error())
	case !loaded:
		s.println(MsgDataFileNotFound)
	default:
		s.println(MsgDataLoaded)
	}
}

func (s *Shell) exit(ctx context.Context) error {
	// Сохранение при выходе должно пройти и после отмены сессии.
	ctx = context.WithoutCancel(ctx)

	var err error
	switch {
	case !s.opts.SaveOnExit:
	case s.loadFailed:
		s.log.Warn("save on exit skipped after failed load")
		s.println(MsgExitSaveSkipped)
	default:
		err = s.save(ctx)
	}
	s.println(MsgExiting)
	s.log.Info("session finished", logger.Count(s.roster.Len()))
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// HELPERS
// ─────────────────────────────────────────────────────────────────────────────

// message переводит ошибку доменного слоя в текст для пользователя.
func (s *Shell) message(err error, success string) string {
	switch {
	case err == nil:
		return success
	case shared.IsAlreadyExists(err):
		return MsgStudentExists
	case shared.IsNotFound(err):
		return MsgStudentNotFound
	case errors.Is(err, shared.ErrInvalidGrade):
		return MsgInvalidGrade
	case shared.IsValidation(err):
		return MsgInvalidInput
	default:
		return "Error: " + err.Error()
	}
}

func (s *Shell) report(op string, err error, fields ...logger.Field) {
	fields = append(fields, logger.Operation(op))
	if err != nil {
		s.log.Warn("command failed", append(fields, logger.Err(err))...)
		return
	}
	s.log.Debug("command completed", fields...)
}

func (s *Shell) prompt(ctx context.Context, label string) (string, error) {
	s.print(label)
	select {
	case line, ok := <-s.lines:
		if !ok {
			s.println("")
			return "", errEndOfInput
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		s.println("")
		return "", errEndOfInput
	}
}

// withTimeout также кладёт в контекст логгер сессии, чтобы записи
// хранилища несли session_id.
func (s *Shell) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = logger.WithContext(ctx, s.log)
	if s.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

func (s *Shell) print(text string) {
	fmt.Fprint(s.out, text)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}
