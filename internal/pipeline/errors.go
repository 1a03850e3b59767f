// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrOutputExists reports an existing output path without overwrite.
	ErrOutputExists = errors.New("output file already exists")

	// ErrCorruptDocument reports an unreadable source document.
	ErrCorruptDocument = errors.New("cannot read source document")

	// ErrConversionFailed reports that every selected page failed.
	ErrConversionFailed = errors.New("all selected pages failed conversion")
)

// PageConversionError is one page's pipeline failure. It is recorded in the
// run result and never aborts the batch on its own.
type PageConversionError struct {
	Page int // 0-based source page index
	Err  error
}

func (e *PageConversionError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page+1, e.Err)
}

func (e *PageConversionError) Unwrap() error {
	return e.Err
}
