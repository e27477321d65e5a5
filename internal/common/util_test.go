package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	require.NoError(t, err)
	assert.Len(t, s, n*2)

	_, err = hex.DecodeString(s)
	assert.NoError(t, err, "string is not valid hex")
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		assert.Zerof(t, v, "expected buf[%d]==0", i)
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	require.NotNil(t, buf)
	assert.Len(t, buf, n)
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	const n = 32
	a := GenerateRandByteArray(n)
	b := GenerateRandByteArray(n)
	assert.NotEqual(t, a, b, "two random buffers are identical; extremely unlikely")
}
