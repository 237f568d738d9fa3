package blob

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffImage(t *testing.T) {
	tests := map[string]struct {
		content string
		want    string
		wantErr bool
	}{
		"png":   {content: "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR", want: "image/png"},
		"gif":   {content: "GIF89a\x01\x00\x01\x00", want: "image/gif"},
		"jpeg":  {content: "\xff\xd8\xff\xe0\x00\x10JFIF", want: "image/jpeg"},
		"html":  {content: "<html><script>alert(1)</script></html>", wantErr: true},
		"svg":   {content: `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"></svg>`, wantErr: true},
		"text":  {content: "hello", wantErr: true},
		"empty": {content: "", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			contentType, r, err := SniffImage(strings.NewReader(tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNotImage))
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, contentType)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestSniffImageReplaysLargeBody(t *testing.T) {
	body := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 4*sniffLen)...)
	_, r, err := SniffImage(bytes.NewReader(body))
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, data)
}

func TestContentTypeRewinds(t *testing.T) {
	rs := strings.NewReader("GIF89a-rest-of-file")
	contentType, err := ContentType(rs)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", contentType)
	assert.True(t, IsImageType(contentType))

	data, err := io.ReadAll(rs)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a-rest-of-file", string(data))

	contentType, err = ContentType(strings.NewReader("<!DOCTYPE html>"))
	require.NoError(t, err)
	assert.False(t, IsImageType(contentType))
}
