// Package file stores the roster as a line-oriented text snapshot.
//
// Layout:
//
//	# roster v1
//	<id>\t<name>[\t<subject>=<grade>]...
//	# sum blake2b-256 <hex>
//
// The checksum line covers every byte before it. Header and checksum are
// optional on read so hand-written files load; when the checksum is present
// it must match. Blank lines are ignored.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/student-roster/internal/domain/shared"
	"github.com/alem-hub/student-roster/internal/domain/student"
	"github.com/alem-hub/student-roster/pkg/logger"
)

const (
	header    = "# roster v1"
	sumPrefix = "# sum blake2b-256 "
)

// ErrChecksumMismatch is returned when the stored checksum does not match the content.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Store implements roster.Store on top of a single text file.
type Store struct {
	path string
	log  *logger.Logger
}

// New creates a file store for path.
func New(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{path: path, log: log}
}

// logger prefers the caller's logger from ctx so entries carry its fields.
func (s *Store) logger(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx, s.log).With(logger.Backend("file"), logger.Path(s.path))
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields shared.ErrSnapshotMissing.
func (s *Store) Load(ctx context.Context) ([]*student.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrSnapshotMissing
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	students, err := Decode(data)
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Debug("snapshot loaded", logger.Count(len(students)))
	return students, nil
}

// Save replaces the snapshot atomically: the content is written to a
// temporary file in the same directory, synced, then renamed over the
// target. On any failure the previous file is left untouched.
func (s *Store) Save(ctx context.Context, students []*student.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(students)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	committed = true

	s.logger(ctx).Debug("snapshot saved", logger.Count(len(students)))
	return nil
}

// Encode renders students in the snapshot format, checksum included.
func Encode(students []*student.Student) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteByte('\n')

	for _, st := range students {
		line, err := st.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("encode student %s: %w", st.ID(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	sum := blake2b.Sum256(buf.Bytes())
	buf.WriteString(sumPrefix)
	buf.WriteString(hex.EncodeToString(sum[:]))
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Decode parses a snapshot. Any malformed line, unknown comment or checksum
// mismatch fails the whole decode with shared.ErrMalformedRecord.
func Decode(data []byte) ([]*student.Student, error) {
	body, err := verifyChecksum(data)
	if err != nil {
		return nil, err
	}

	var students []*student.Student
	reader := bufio.NewReader(bytes.NewReader(body))

	// ReadString has no line length limit, so any line Encode wrote reads back.
	for lineNo, done := 1, false; !done; lineNo++ {
		raw, readErr := reader.ReadString('\n')
		done = readErr != nil
		line := strings.TrimRight(raw, "\r\n")

		switch {
		case strings.TrimSpace(line) == "":
		case strings.HasPrefix(line, "#"):
			if lineNo != 1 || line != header {
				return nil, shared.ErrMalformedRecord.Wrap(fmt.Errorf("line %d: unexpected comment %q", lineNo, line))
			}
		default:
			st, err := student.ParseLine(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			students = append(students, st)
		}
	}

	return students, nil
}

// verifyChecksum strips and checks a trailing checksum line, if any.
func verifyChecksum(data []byte) ([]byte, error) {
	trimmed := bytes.TrimRight(data, "\r\n")
	idx := bytes.LastIndexByte(trimmed, '\n')
	last := trimmed[idx+1:]
	if !bytes.HasPrefix(last, []byte(sumPrefix)) {
		return data, nil
	}

	body := data[:idx+1]
	want := strings.TrimSpace(string(last[len(sumPrefix):]))
	got := blake2b.Sum256(body)
	if hex.EncodeToString(got[:]) != want {
		return nil, shared.ErrMalformedRecord.Wrap(ErrChecksumMismatch)
	}
	return body, nil
}
