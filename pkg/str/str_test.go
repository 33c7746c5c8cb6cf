package str

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringToInt(t *testing.T) {
	got, err := StringToInt("")
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = StringToInt("42")
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = StringToInt("ten")
	require.Error(t, err)
}

func TestFloatToFormValue(t *testing.T) {
	assert.Equal(t, "2.5", FloatToFormValue(2.5))
	assert.Equal(t, "0.055", FloatToFormValue(0.055))
	assert.Equal(t, "100", FloatToFormValue(100))
}
