package zest

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type ZestError interface {
	error
	WithMessage(message string) ZestError
	Wrap(err error) ZestError
}

type baseZestError string

const rootError = baseZestError("")

// Open errors. The drive stays empty when one of these is returned.
var ErrUnknownFormat = rootError.WithMessage("Could not determine the floppy image file format")
var ErrNotFound = rootError.WithMessage("No such floppy image file")
var ErrInvalidHeader = rootError.WithMessage("Invalid image header")
var ErrUnsupportedGeometry = rootError.WithMessage("Unsupported disk geometry")
var ErrPartialImage = rootError.WithMessage("Partial images are not supported")
var ErrNoDialect = rootError.WithMessage("No MFM dialect selected")
var ErrCorruptTrack = rootError.WithMessage("Corrupt track data")

// Write-back and lifecycle errors.
var ErrWriteback = rootError.WithMessage("Image write-back failed")
var ErrReadOnly = rootError.WithMessage("Image is read-only")
var ErrClosed = rootError.WithMessage("Image already closed")
var ErrPackFailed = rootError.WithMessage("Track packing failed")

// Controller errors.
var ErrInvalidDrive = rootError.WithMessage("Invalid drive number")
var ErrDeviceFailed = rootError.WithMessage("Register device failure")

func (e baseZestError) Error() string {
	return string(e)
}

func (e baseZestError) RootCause() ZestError {
	return e
}

func (e baseZestError) WithMessage(message string) ZestError {
	return customZestError{
		message:       message,
		originalError: e,
	}
}

func (e baseZestError) Wrap(err error) ZestError {
	return customZestError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customZestError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customZestError) Error() string {
	return e.message
}

func (e customZestError) WithMessage(message string) ZestError {
	return customZestError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customZestError) Wrap(err error) ZestError {
	return customZestError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customZestError) Unwrap() error {
	return e.originalError
}
