package simlog

// scanner.go contains the line oriented primitives shared by the
// report aggregation, progress estimation and profile export.

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// LogFile is the name of the native log written by the tool.
	LogFile = "simulation.log"

	actionRequest = "REQUEST"
	actionUser    = "USER"
	resultOK      = "OK"
	userStart     = "START"
)

// header is the first line of a simulation log.
type header struct {
	name    string
	version string
	start   uint64
}

// record is one tab separated line after the header.
type record struct {
	line   int
	fields []string
}

func (r record) action() string {
	return r.fields[0]
}

func (r record) field(idx int, name string) (string, error) {
	if idx >= len(r.fields) {
		return "", &ParseError{Line: r.line, Field: name, Err: ErrMissingField}
	}
	return r.fields[idx], nil
}

func (r record) millis(idx int, name string) (uint64, error) {
	s, err := r.field(idx, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Line: r.line, Field: name, Err: err}
	}
	return v, nil
}

// request is a decoded REQUEST record.
type request struct {
	group    string
	name     string
	start    uint64
	duration uint64
	result   string
}

func (r record) request() (request, error) {
	group, err := r.field(1, "group")
	if err != nil {
		return request{}, err
	}
	name, err := r.field(2, "name")
	if err != nil {
		return request{}, err
	}
	start, err := r.millis(3, "start")
	if err != nil {
		return request{}, err
	}
	end, err := r.millis(4, "end")
	if err != nil {
		return request{}, err
	}
	if end < start {
		return request{}, &ParseError{Line: r.line, Field: "end", Err: ErrNegativeDuration}
	}
	result, err := r.field(5, "request_result")
	if err != nil {
		return request{}, err
	}
	return request{
		group:    group,
		name:     name,
		start:    start,
		duration: end - start,
		result:   result,
	}, nil
}

// lineReader yields the lines of a log without a length limit, so long
// error messages never make a log unreadable.
type lineReader struct {
	r    *bufio.Reader
	line string
	err  error
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// Scan advances to the next line. A final line without a newline is
// returned as well.
func (l *lineReader) Scan() bool {
	if l.err != nil {
		return false
	}
	line, err := l.r.ReadString('\n')
	if err != nil {
		l.err = err
		if err != io.EOF || line == "" {
			return false
		}
	}
	l.line = strings.TrimSuffix(line, "\n")
	return true
}

func (l *lineReader) Text() string {
	return l.line
}

// Err returns the first read error, nil at end of input.
func (l *lineReader) Err() error {
	if l.err == io.EOF {
		return nil
	}
	return l.err
}

func splitLine(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), "\t")
}

func parseHeader(line string) (header, error) {
	fields := splitLine(line)
	if len(fields) < 6 {
		return header{}, &ParseError{Line: 1, Field: "header", Err: ErrMalformedHeader}
	}
	h := header{name: fields[4], version: fields[5]}
	// The start timestamp is informational only.
	if v, err := strconv.ParseUint(fields[3], 10, 64); err == nil {
		h.start = v
	}
	return h, nil
}

// scan reads the header and calls fn for every following record. It stops at
// the first error returned by fn.
func scan(r io.Reader, fn func(record) error) (header, error) {
	scanner := newLineReader(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return header{}, fmt.Errorf("error reading input: %w", err)
		}
		return header{}, &ParseError{Line: 1, Field: "header", Err: ErrMalformedHeader}
	}
	h, err := parseHeader(scanner.Text())
	if err != nil {
		return header{}, err
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		rec := record{line: lineNo, fields: splitLine(scanner.Text())}
		if err := fn(rec); err != nil {
			return header{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return header{}, fmt.Errorf("error reading input: %w", err)
	}

	return h, nil
}
