package blob

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotImage is returned when uploaded content does not sniff as a raster image.
var ErrNotImage = errors.New("content is not an image")

// sniffLen is how many bytes http.DetectContentType looks at
const sniffLen = 512

// IsImageType reports whether a sniffed content type is a raster image.
// SVG sniffs as text/xml and is rejected with everything else.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// SniffImage reads the head of r and checks that it is an image.
// It returns the detected content type and a reader that replays the
// consumed bytes followed by the rest of r.
func SniffImage(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, errors.Wrap(err, "unable to read upload")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if !IsImageType(contentType) {
		return contentType, nil, errors.Wrapf(ErrNotImage, "detected %s", contentType)
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

// ContentType sniffs the stored object and rewinds it.
func ContentType(rs io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.WithStack(err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", errors.WithStack(err)
	}
	return http.DetectContentType(head[:n]), nil
}
