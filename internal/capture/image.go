// Package capture produces the in-memory image representation used across
// the scanning flow: a data-URI-encoded byte buffer plus its MIME type.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotImage is returned when the supplied bytes do not sniff as image/*.
var ErrNotImage = errors.New("payload is not an image")

// ErrMalformedDataURI is returned when a data URI cannot be decoded.
var ErrMalformedDataURI = errors.New("malformed data uri")

// Image is an acquired image held as raw bytes and its sniffed MIME type.
// The data-URI form is the canonical representation handed between the
// capture and prediction units.
type Image struct {
	mime string
	data []byte
}

// FromBytes wraps raw image bytes, sniffing and enforcing an image/* MIME
// type. The caller keeps no aliasing expectations; the bytes are copied.
func FromBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrNotImage
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Image{mime: mime, data: buf}, nil
}

// ParseDataURI decodes a base64 data URI back into an Image.
func ParseDataURI(uri string) (*Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, ErrMalformedDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrMalformedDataURI
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: only base64 data uris are supported", ErrMalformedDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return FromBytes(data)
}

// Bytes returns the raw image bytes.
func (i *Image) Bytes() []byte {
	if i == nil {
		return nil
	}
	return i.data
}

// MIME returns the sniffed content type, e.g. image/jpeg.
func (i *Image) MIME() string {
	if i == nil {
		return ""
	}
	return i.mime
}

// URI returns the image as a base64 data URI.
func (i *Image) URI() string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", i.mime, base64.StdEncoding.EncodeToString(i.data))
}
