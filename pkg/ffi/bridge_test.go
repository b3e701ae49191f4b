package ffi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/suffix-labs/orchardlib/pkg/orchard"
	"github.com/suffix-labs/orchardlib/pkg/orchardlib"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	for code, want := range statusByCode {
		err := fmt.Errorf("wrapped: %w", orchard.Errorf(code, "boom"))
		assert.Equal(t, want, StatusOf(err), code)
	}
	assert.Equal(t, StatusInternal, StatusOf(errors.New("plain")))
	assert.Len(t, statusByCode, 9, "every orchard code has a status")
}

func TestCallRecordsLastError(t *testing.T) {
	res := Call(func() ([]byte, error) {
		return orchardlib.F4Jumble(make([]byte, 10))
	})
	assert.Equal(t, StatusInvalidLength, res.Status)
	assert.Nil(t, res.Data)
	assert.NotEmpty(t, LastError())
	t.Logf("✓ last error: %s", LastError())

	res = Call(func() ([]byte, error) {
		return orchardlib.F4Jumble(make([]byte, 48))
	})
	require.Equal(t, StatusOK, res.Status)
	assert.Len(t, res.Data, 48)
	assert.Empty(t, LastError(), "success clears the last error")
}

func TestCallRecoversPanics(t *testing.T) {
	res := Call(func() ([]byte, error) {
		var m map[string]int
		m["x"] = 1
		return nil, nil
	})
	assert.Equal(t, StatusInternal, res.Status)
	assert.Equal(t, "ffi: internal error", LastError())
}

func TestNullPointer(t *testing.T) {
	res := NullPointer()
	assert.Equal(t, StatusNullPointer, res.Status)
	assert.Equal(t, ErrNullPointer.Error(), LastError())
}
