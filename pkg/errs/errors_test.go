package errs

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestCodeThroughWrapping(t *testing.T) {
	err := eris.Wrap(ErrStorageConflict, "claim job 7")
	assert.True(t, errors.Is(err, ErrStorageConflict))
	assert.Equal(t, "storage_conflict", Code(err))

	assert.Equal(t, "not_found", Code(eris.Wrapf(ErrNotFound, "job %d", 3)))
	assert.Equal(t, "internal_error", Code(errors.New("boom")))
	assert.Equal(t, "internal_error", Code(nil))
}
