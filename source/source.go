package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnavailable is matched by every UnavailableError
var ErrUnavailable = errors.New("source unavailable")

// UnavailableError means the input can't be read. It is fatal to a job.
type UnavailableError struct {
	Path string
	Line int // 0 when the file couldn't be opened at all
	Err  error
}

func (e *UnavailableError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("source unavailable: %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("source unavailable: %s: %v", e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Line is one raw data line of the input
type Line struct {
	Number int // physical line in the file, 1-based
	Fields []string
}

// Reader yields data lines of a comma separated file, header lines excluded
type Reader struct {
	path string
	file *os.File
	csv  *csv.Reader
}

// Open opens path and skips the first linesToSkip lines
func Open(path string, linesToSkip int) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &UnavailableError{Path: path, Err: err}
	}

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	reader := &Reader{path: path, file: file, csv: r}
	for i := 0; i < linesToSkip; i++ {
		if _, err := reader.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break // header only, nothing to import
			}
			file.Close()
			return nil, err
		}
	}
	return reader, nil
}

// Next returns the next data line, or io.EOF once the file is exhausted
func (r *Reader) Next() (Line, error) {
	fields, err := r.csv.Read()
	if err == io.EOF {
		return Line{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		line := 0
		if errors.As(err, &perr) {
			line = perr.StartLine
		}
		return Line{}, &UnavailableError{Path: r.path, Line: line, Err: err}
	}

	number, _ := r.csv.FieldPos(0)
	return Line{Number: number, Fields: fields}, nil
}

// Path returns the file being read
func (r *Reader) Path() string {
	return r.path
}

// Close releases the underlying file
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
