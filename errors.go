package filedb

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityField is returned when trying to edit or delete IDField.
	ErrIdentityField = errors.New("cannot modify the id of an entry")

	// ErrNotObject is wrapped by TypeError when a record is not a map.
	ErrNotObject = errors.New("entry must be an object")

	// ErrNotList is wrapped by TypeError when a list of records is expected.
	ErrNotList = errors.New("must be a list")

	ErrCollectionNotFound = errors.New("collection not found")
	ErrClosed             = errors.New("database closed")
)

// TypeError reports a value of the wrong shape passed to Op. It wraps either
// ErrNotObject or ErrNotList.
type TypeError struct {
	Op   string
	Got  Kind
	Err  error
	Path string
	Pos  int // position in the list being imported, -1 if not applicable
}

func typeErrf(op string, got Kind, err error) error {
	return &TypeError{Op: op, Got: got, Err: err, Pos: -1}
}

func (e *TypeError) Unwrap() error {
	return e.Err
}

func (e *TypeError) Error() string {
	prefix := e.Op
	if e.Path != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: [%d]: %v, got %v", prefix, e.Pos, e.Err, e.Got)
	}
	return fmt.Sprintf("%s: %v, got %v", prefix, e.Err, e.Got)
}

// DataError reports undecodable bytes: a corrupted backing file or a broken
// import file. Preview holds a hex rendering of the start and end of the
// data, since the data itself may be gone (unmapped) by the time the error
// is looked at.
type DataError struct {
	Path    string
	Size    int
	Preview string
	Err     error
	Msg     string
}

func dataErrf(path string, data []byte, err error, format string, args ...any) error {
	return &DataError{
		Path:    path,
		Size:    len(data),
		Preview: hexPreview(data),
		Err:     err,
		Msg:     fmt.Sprintf(format, args...),
	}
}

func hexPreview(data []byte) string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(data)
	if n <= prefixLen+suffixLen {
		return fmt.Sprintf("%x", data)
	}
	return fmt.Sprintf("%x...%x", data[:prefixLen], data[n-suffixLen:])
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v: (%d) %s", e.Path, e.Msg, e.Err, e.Size, e.Preview)
	}
	return fmt.Sprintf("%s: %s: (%d) %s", e.Path, e.Msg, e.Size, e.Preview)
}
