// Package source implements the Record Source: it turns a byte stream
// into one logical record (a text line, or a length-prefixed binary
// frame) at a time, tracking a line counter and a landmark string for
// diagnostics. It never returns a Go error from the read path; failures
// go through the caller-supplied ErrorHandler, mirroring the engine's
// "errors via callback, not via return" contract.
package source

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// Severity classifies a diagnostic raised through an ErrorHandler.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// ErrorHandler receives every diagnostic the source and engine raise.
// landmark identifies the offending record ("file.dump:42"); format/args
// follow fmt.Sprintf conventions.
type ErrorHandler func(severity Severity, landmark, format string, args ...any)

// RecordSource wraps a *bufio.Reader over a dump file, exposing the
// line/frame-oriented operations the Directive Interpreter and Record
// Parser are built on.
type RecordSource struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	lineNum int
	binary  bool

	peeked    string
	peekedOK  bool
	hasPeeked bool

	onError     ErrorHandler
	initialized bool
}

// New opens path for reading. onError may be nil, in which case
// diagnostics are discarded silently.
func New(path string, onError ErrorHandler) (*RecordSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if onError == nil {
		onError = func(Severity, string, string, ...any) {}
	}
	return &RecordSource{
		path:        path,
		file:        f,
		reader:      bufio.NewReaderSize(f, 64*1024),
		onError:     onError,
		initialized: true,
	}, nil
}

// SetBinary switches the source's landmark template; it does not by
// itself change how records are read -- the caller decides, per record,
// whether to call ReadLine or ReadBinaryFrame.
func (s *RecordSource) SetBinary(b bool) { s.binary = b }

// Binary reports whether the source is currently in binary framing mode.
func (s *RecordSource) Binary() bool { return s.binary }

// Initialized reports whether the source can still produce records.
// It goes false once EOF has been observed or the file has been closed
// after an unrecoverable error.
func (s *RecordSource) Initialized() bool { return s.initialized }

// Landmark formats the current position for diagnostics, matching the
// original's "%f:%l" (text) / "%f:record %l" (binary) templates.
func (s *RecordSource) Landmark() string {
	if s.binary {
		return fmt.Sprintf("%s:record %d", s.path, s.lineNum)
	}
	return fmt.Sprintf("%s:%d", s.path, s.lineNum)
}

func (s *RecordSource) fail(format string, args ...any) {
	s.onError(SeverityError, s.Landmark(), format, args...)
}

// PeekLine returns the next text line without consuming it. Calling
// ReadLine immediately afterward returns the same line.
func (s *RecordSource) PeekLine() (string, bool) {
	if s.hasPeeked {
		return s.peeked, s.peekedOK
	}
	line, ok := s.readLineRaw()
	s.peeked, s.peekedOK, s.hasPeeked = line, ok, true
	return line, ok
}

// ReadLine returns the next text line, with its trailing newline
// stripped, advancing the line counter. ok is false at EOF.
func (s *RecordSource) ReadLine() (string, bool) {
	if s.hasPeeked {
		s.hasPeeked = false
		return s.peeked, s.peekedOK
	}
	return s.readLineRaw()
}

func (s *RecordSource) readLineRaw() (string, bool) {
	line, err := s.reader.ReadString('\n')
	if len(line) == 0 && err != nil {
		if err == io.EOF {
			s.initialized = false
		} else {
			s.fail("read error: %v", err)
			s.initialized = false
		}
		return "", false
	}
	s.lineNum++
	return strings.TrimRight(line, "\r\n"), true
}

// GetUnaligned copies n raw bytes from the stream, bypassing line
// buffering. Go has no alignment requirement the way the original's C++
// memcpy-based accessor did; this exists to keep the Record Source's
// operation set complete.
func (s *RecordSource) GetUnaligned(n int) ([]byte, bool) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			s.fail("read error: %v", err)
		}
		s.initialized = false
		return nil, false
	}
	return buf, true
}

// GetString returns the next n bytes as a freshly allocated slice.
func (s *RecordSource) GetString(n int) ([]byte, bool) {
	return s.GetUnaligned(n)
}

// ReadBinaryFrame reads one `LEN32 | PAYLOAD[LEN32-4]` frame. isText
// reports whether the high bit of LEN32 was set, meaning payload is an
// ASCII line to be parsed in text mode but counted as one record.
func (s *RecordSource) ReadBinaryFrame() (payload []byte, isText bool, ok bool) {
	var lenBuf [4]byte
	n, err := io.ReadFull(s.reader, lenBuf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			s.initialized = false
			return nil, false, false
		}
		s.fail("short binary record header: %v", err)
		s.initialized = false
		return nil, false, false
	}

	raw := binary.BigEndian.Uint32(lenBuf[:])
	isText = raw&0x80000000 != 0
	length := raw &^ 0x80000000
	if length < 4 {
		s.fail("binary record length %d is less than the 4-byte header", length)
		s.initialized = false
		return nil, false, false
	}

	payload = make([]byte, length-4)
	if len(payload) > 0 {
		if _, err := io.ReadFull(s.reader, payload); err != nil {
			s.fail("truncated binary record: %v", err)
			s.initialized = false
			return nil, false, false
		}
	}
	s.lineNum++
	return payload, isText, true
}

// Close releases the underlying file. Safe to call more than once.
func (s *RecordSource) Close() error {
	s.initialized = false
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
