//go:build linux || darwin || freebsd

package dl

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libc(t *testing.T) *Library {
	t.Helper()

	names := []string{"libc.so.6", "libc.so.7", "libc.so"}
	if runtime.GOOS == "darwin" {
		names = []string{"/usr/lib/libSystem.B.dylib"}
	}

	lib, err := Open(names...)
	if err != nil {
		t.Skipf("libc not loadable: %v", err)
	}

	t.Cleanup(func() {
		assert.NoError(t, lib.Close())
	})

	return lib
}

func TestBind(t *testing.T) {
	lib := libc(t)

	var strlen func(s string) uint
	require.NoError(t, lib.Bind(&strlen, "strlen"))
	assert.EqualValues(t, 5, strlen("hello"))
}

func TestBindMissingSymbol(t *testing.T) {
	lib := libc(t)

	var fn func() int
	err := lib.Bind(&fn, "pcmout_no_such_symbol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pcmout_no_such_symbol")
	assert.Nil(t, fn)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open("libpcmout-missing.so.0", "libpcmout-missing.so")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libpcmout-missing.so.0")

	_, err = Open()
	assert.Error(t, err)
}

func TestCloseTwice(t *testing.T) {
	lib := libc(t)

	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())

	var fn func(string) uint
	assert.Error(t, lib.Bind(&fn, "strlen"))
}
