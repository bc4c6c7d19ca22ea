package binio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedEOF is wrapped by every DataError caused by reading past the end of the data.
var ErrUnexpectedEOF = io.ErrUnexpectedEOF

// DataError describes malformed input. Off is the position the decoder was at when it gave up.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

// Errorf builds a *DataError. err may be nil.
func Errorf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 32
	const suffixLen = 16
	data := e.excerpt()
	n := len(e.Data)
	if len(data) <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s at offset %d: %v: (%d) %x", e.Msg, e.Off, e.Err, n, data)
		} else {
			return fmt.Sprintf("%s at offset %d: (%d) %x", e.Msg, e.Off, n, data)
		}
	} else {
		p, s := data[:prefixLen], data[len(data)-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s at offset %d: %v: (%d) %x...%x", e.Msg, e.Off, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s at offset %d: (%d) %x...%x", e.Msg, e.Off, n, p, s)
		}
	}
}

// excerpt returns the bytes around Off, which is what matters for multi-megabyte inputs.
func (e *DataError) excerpt() []byte {
	const window = 24
	start, end := e.Off-window, e.Off+window
	if start < 0 {
		start = 0
	}
	if end > len(e.Data) {
		end = len(e.Data)
	}
	if start > end {
		start = end
	}
	return e.Data[start:end]
}

// SizeMismatchError reports that a decoder stopped somewhere other than where the enclosing
// container said it would end.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected to end at %d, ended at %d", e.Expected, e.Actual)
}

// CheckSizeMismatch returns a *SizeMismatchError unless actual == expected.
func CheckSizeMismatch(expected, actual int) error {
	if expected != actual {
		return &SizeMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}

// IsFraming reports whether err was caused by truncated, oversized or otherwise malformed framing.
func IsFraming(err error) bool {
	var de *DataError
	var se *SizeMismatchError
	return errors.As(err, &de) || errors.As(err, &se)
}

// Detach copies the input referenced by every DataError in err's chain, so that err stays
// printable after the input buffer is released or unmapped.
func Detach(err error) error {
	detach(err)
	return err
}

func detach(err error) {
	for err != nil {
		if de, ok := err.(*DataError); ok && de.Data != nil {
			de.Data = bytes.Clone(de.Data)
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				detach(e)
			}
			return
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return
		}
	}
}
