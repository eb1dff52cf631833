package validator

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const (
	headerWindow = 1024
	// smallest possible xref entry: "0 0 n" plus separators
	minXRefEntrySize = 6
)

var (
	errNoHeader    = errors.New("missing %PDF- header")
	errNoStartXRef = errors.New("missing startxref")
	errNoEOF       = errors.New("missing EOF marker")
	errNoTrailer   = errors.New("missing trailer dictionary")
	errNoRoot      = errors.New("trailer has no /Root reference")

	objectHeader = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+obj\b`)
	rootRef      = regexp.MustCompile(`/Root\s+\d+\s+\d+\s+R`)
	xrefType     = regexp.MustCompile(`/Type\s*/XRef\b`)
)

// CheckStructure verifies that data is a well-formed PDF: a header
// signature, a startxref pointer to either a cross-reference table or a
// cross-reference stream, and a trailer naming the document catalog.
// It does not decode object streams or content.
//
// Offsets are taken relative to the header, so junk prepended to the file
// does not invalidate it.
func CheckStructure(data []byte) error {
	base, err := checkHeader(data)
	if err != nil {
		return err
	}

	offset, err := findStartXRef(data, base)
	if err != nil {
		return err
	}

	s := &scanner{data: data, pos: offset, base: base}
	s.skipSpace()

	if s.hasPrefix("xref") {
		s.pos += len("xref")
		return checkXRefTable(s)
	}

	return checkXRefStream(data, offset)
}

func checkHeader(data []byte) (int, error) {
	window := data[:min(len(data), headerWindow)]

	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return 0, errNoHeader
	}

	v := idx + len("%PDF-")
	if v >= len(data) || data[v] < '1' || data[v] > '2' {
		return 0, fmt.Errorf("unsupported PDF version at offset %d", v)
	}

	return idx, nil
}

func findStartXRef(data []byte, base int) (int, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, errNoStartXRef
	}

	s := &scanner{data: data, pos: idx + len("startxref")}
	s.skipSpace()

	offset, err := s.readInt()
	if err != nil {
		return 0, fmt.Errorf("invalid startxref value: %w", err)
	}

	offset += base

	if !bytes.Contains(data[s.pos:], []byte("%%EOF")) {
		return 0, errNoEOF
	}

	if offset <= base || offset >= len(data) {
		return 0, fmt.Errorf("startxref offset %d outside file of %d bytes", offset, len(data))
	}

	return offset, nil
}

func checkXRefTable(s *scanner) error {
	for {
		s.skipSpace()

		if s.hasPrefix("trailer") {
			s.pos += len("trailer")
			break
		}

		if s.eof() {
			return errNoTrailer
		}

		first, err := s.readInt()
		if err != nil {
			return fmt.Errorf("invalid xref subsection start: %w", err)
		}

		count, err := s.readInt()
		if err != nil {
			return fmt.Errorf("invalid xref subsection size: %w", err)
		}

		if count < 0 || count > (len(s.data)-s.pos)/minXRefEntrySize {
			return fmt.Errorf("xref subsection %d claims %d entries", first, count)
		}

		for i := range count {
			if err := checkXRefEntry(s, first+i); err != nil {
				return err
			}
		}
	}

	s.skipSpace()

	dict, err := s.readDictionary()
	if err != nil {
		return err
	}

	if !rootRef.Match(dict) {
		return errNoRoot
	}

	return nil
}

func checkXRefEntry(s *scanner, num int) error {
	offset, err := s.readInt()
	if err != nil {
		return fmt.Errorf("xref entry %d: invalid offset: %w", num, err)
	}

	if _, err = s.readInt(); err != nil {
		return fmt.Errorf("xref entry %d: invalid generation: %w", num, err)
	}

	kind := s.readToken()

	switch string(kind) {
	case "f":
		return nil
	case "n":
	default:
		return fmt.Errorf("xref entry %d: unknown type %q", num, kind)
	}

	offset += s.base

	if offset <= s.base || offset >= len(s.data) {
		return fmt.Errorf("xref entry %d points outside the file", num)
	}

	if !objectHeader.Match(s.data[offset:min(len(s.data), offset+64)]) {
		return fmt.Errorf("xref entry %d does not point at an object", num)
	}

	return nil
}

func checkXRefStream(data []byte, offset int) error {
	head := data[offset:]

	if objectHeader.FindIndex(head) == nil {
		return fmt.Errorf("startxref offset %d points at neither xref table nor stream", offset)
	}

	end := bytes.Index(head, []byte("stream"))
	if end < 0 {
		return errors.New("xref stream object has no stream body")
	}

	dict := head[:end]

	if !xrefType.Match(dict) {
		return errors.New("object at startxref is not an xref stream")
	}

	if !rootRef.Match(dict) {
		return errNoRoot
	}

	return nil
}

type scanner struct {
	data []byte
	pos  int
	base int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.data)
}

func (s *scanner) hasPrefix(prefix string) bool {
	return bytes.HasPrefix(s.data[s.pos:], []byte(prefix))
}

func (s *scanner) skipSpace() {
	for !s.eof() && isSpace(s.data[s.pos]) {
		s.pos++
	}
}

func (s *scanner) readToken() []byte {
	s.skipSpace()

	start := s.pos
	for !s.eof() && !isSpace(s.data[s.pos]) {
		s.pos++
	}

	return s.data[start:s.pos]
}

func (s *scanner) readInt() (int, error) {
	tok := s.readToken()
	if len(tok) == 0 {
		return 0, errors.New("unexpected end of data")
	}

	return strconv.Atoi(string(tok))
}

// readDictionary returns the bytes of the balanced << ... >> at the cursor
func (s *scanner) readDictionary() ([]byte, error) {
	if !s.hasPrefix("<<") {
		return nil, errNoTrailer
	}

	start := s.pos
	depth := 0

	for s.pos < len(s.data)-1 {
		switch {
		case s.data[s.pos] == '<' && s.data[s.pos+1] == '<':
			depth++
			s.pos += 2
		case s.data[s.pos] == '>' && s.data[s.pos+1] == '>':
			depth--
			s.pos += 2

			if depth == 0 {
				return s.data[start:s.pos], nil
			}
		default:
			s.pos++
		}
	}

	return nil, errNoTrailer
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}

	return false
}
