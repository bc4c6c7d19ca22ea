package esf

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidNode = errors.New("invalid node")

// UnsupportedSignatureError is returned for files whose signature is recognised or unknown
// but cannot be decoded or encoded.
type UnsupportedSignatureError struct {
	Signature Signature
}

func (e *UnsupportedSignatureError) Error() string {
	if e.Signature.known() {
		return fmt.Sprintf("esf: unsupported signature %v", e.Signature)
	}
	return fmt.Sprintf("esf: unknown signature %v", e.Signature)
}

// EncodeError locates a node that cannot be written. Path lists the enclosing record names.
type EncodeError struct {
	Path []string
	Err  error
}

func (e *EncodeError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("esf: %v", e.Err)
	}
	return fmt.Sprintf("esf: %s: %v", strings.Join(e.Path, "/"), e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
