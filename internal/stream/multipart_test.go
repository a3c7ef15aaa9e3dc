// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePart_Framing(t *testing.T) {
	var buf bytes.Buffer
	n, err := WritePart(&buf, "image/jpeg", []byte("JPEGDATA"))
	require.NoError(t, err)

	want := "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 8\r\n\r\nJPEGDATA\r\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, len(want), n)
	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", ContentType)
}

type failAfter struct {
	writes int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.writes == 0 {
		return 0, errors.New("broken pipe")
	}
	f.writes--
	return len(p), nil
}

func TestWritePart_StopsOnError(t *testing.T) {
	n, err := WritePart(&failAfter{writes: 1}, "image/webp", []byte("x"))
	assert.Error(t, err)
	assert.Equal(t, len("--frame\r\nContent-Type: image/webp\r\nContent-Length: 1\r\n\r\n"), n)
}
