package ragerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("delete vectors: %w", Wrap(ErrVectorIndex, cause))

	assert.ErrorIs(t, err, ErrVectorIndex)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStore)
	assert.Equal(t, "delete vectors: vector index error: connection refused", err.Error())
	assert.Equal(t, ErrNotFound, Wrap(ErrNotFound, nil))
}

func TestFileError(t *testing.T) {
	err := NewFileError("a.pdf", Wrap(ErrProcessing, errors.New("bad xref")))

	var fe *FileError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, "a.pdf", fe.Filename)
	assert.ErrorIs(t, err, ErrProcessing)
}
