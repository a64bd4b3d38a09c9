package zest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zerkman/zest"
)

func TestZestErrorWithMessage(t *testing.T) {
	newErr := zest.ErrUnsupportedGeometry.WithMessage("12 sectors per track")
	assert.Equal(
		t,
		"Unsupported disk geometry: 12 sectors per track",
		newErr.Error(),
		"error message is wrong")
	assert.ErrorIs(t, newErr, zest.ErrUnsupportedGeometry)
}

func TestZestErrorWrap(t *testing.T) {
	originalErr := errors.New("disk full")
	newErr := zest.ErrWriteback.Wrap(originalErr)
	expectedMessage := "Image write-back failed: disk full"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, zest.ErrWriteback, "zest error not set as parent")
}

func TestZestErrorDistinctSentinels(t *testing.T) {
	err := zest.ErrNotFound.WithMessage("a.st")
	assert.NotErrorIs(t, err, zest.ErrUnknownFormat)
}
