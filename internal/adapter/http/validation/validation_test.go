package validation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp4Header is the ftyp box prefix http.DetectContentType recognizes
// as video/mp4.
func mp4Header() []byte {
	b := make([]byte, 0, 32)
	b = append(b, 0x00, 0x00, 0x00, 0x10)
	b = append(b, []byte("ftypmp42")...)
	b = append(b, bytes.Repeat([]byte{0}, 20)...)
	return b
}

func pngHeader() []byte {
	return append([]byte{0x89}, []byte("PNG\r\n\x1a\n")...)
}

func TestSniffVideo(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		allowed bool
	}{
		{name: "mp4 allowed", data: mp4Header(), allowed: true},
		{name: "webm allowed", data: append([]byte{0x1A, 0x45, 0xDF, 0xA3}, make([]byte, 40)...), allowed: true},
		{name: "png rejected", data: pngHeader(), allowed: false},
		{name: "html rejected", data: []byte("<!DOCTYPE html><html></html>"), allowed: false},
		{name: "unsniffable binary passes to probe", data: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			_, allowed, err := SniffVideo(r)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)

			// Reader must be rewound for the subsequent file copy.
			pos, err := r.Seek(0, 1)
			require.NoError(t, err)
			assert.Zero(t, pos)
		})
	}
}

func TestSniffImage(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		allowed bool
	}{
		{name: "png allowed", data: pngHeader(), allowed: true},
		{name: "jpeg allowed", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, allowed: true},
		{name: "gif allowed", data: []byte("GIF89a\x00\x00"), allowed: true},
		{name: "mp4 rejected", data: mp4Header(), allowed: false},
		{name: "unsniffable binary rejected", data: []byte{0xDE, 0xAD, 0xBE, 0xEF}, allowed: false},
		{name: "svg rejected", data: []byte(`<?xml version="1.0"?><svg></svg>`), allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, allowed, err := SniffImage(bytes.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "holiday.mp4", want: "holiday.mp4"},
		{name: "unicode preserved", input: "vidéo 映画.mp4", want: "vidéo 映画.mp4"},
		{name: "path separators replaced", input: "../../etc/passwd", want: ".._.._etc_passwd"},
		{name: "quote replaced", input: `a"b.mp4`, want: "a_b.mp4"},
		{name: "newline replaced", input: "a\nb.mp4", want: "a_b.mp4"},
		{name: "empty falls back", input: "", want: "file"},
		{name: "only underscores falls back", input: "___", want: "file"},
		{name: "whitespace falls back", input: "   ", want: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameTruncation(t *testing.T) {
	long := strings.Repeat("a", 300) + ".mp4"
	got := SanitizeFilename(long)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasSuffix(got, ".mp4"))
}

func TestSafeExt(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "movie.mp4", want: ".mp4"},
		{input: "movie.MKV", want: ".mkv"},
		{input: "noext", want: ""},
		{input: "weird.m p4", want: ""},
		{input: "dots...", want: ""},
		{input: "a.verylongextension", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeExt(tt.input), "input %q", tt.input)
	}
}
