package otpcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_SixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, Digits)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', code)
		}
	}
}

func TestEqual(t *testing.T) {
	h := Hash("a@b.com", "123456")
	assert.True(t, Equal("a@b.com", "123456", h))
	assert.False(t, Equal("a@b.com", "123457", h))
	assert.False(t, Equal("c@d.com", "123456", h))
}
