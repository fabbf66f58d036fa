package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestStream_Output(t *testing.T) {
	var out bytes.Buffer
	s := NewStream(strings.NewReader(""), &out)

	s.Println("hello", "world")
	s.Printf("order %s: %d items\n", "o1", 3)
	_, err := s.Write([]byte("raw"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\norder o1: 3 items\nraw", out.String())
}

func TestStream_ReadInput(t *testing.T) {
	var out bytes.Buffer
	s := NewStream(strings.NewReader("  yes \nsecond line\n"), &out)

	answer, err := s.ReadInput("Proceed? ")
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
	assert.Equal(t, "Proceed? ", out.String())

	answer, err = s.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "second line", answer)
}

func TestStream_ReadInputWithoutNewline(t *testing.T) {
	s := NewStream(strings.NewReader("y"), io.Discard)

	answer, err := s.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "y", answer)

	_, err = s.ReadInput("")
	assert.ErrorIs(t, err, io.EOF)
}
