// Package dataurl encodes and decodes base64 data URLs
// ("data:<mime>;base64,<payload>").
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	prefix = "data:"
	marker = ";base64,"
)

// ErrMalformed is returned by Decode for strings that are not base64 data URLs.
var ErrMalformed = errors.New("malformed data url")

// Encode returns a self-contained data URL for data.
func Encode(mimeType string, data []byte) string {
	var sb strings.Builder
	sb.Grow(len(prefix) + len(mimeType) + len(marker) + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(prefix)
	sb.WriteString(mimeType)
	sb.WriteString(marker)
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

// Decode splits a data URL into its MIME type and payload.
func Decode(url string) (string, []byte, error) {
	if !strings.HasPrefix(url, prefix) {
		return "", nil, ErrMalformed
	}
	mimeType, payload, ok := strings.Cut(url[len(prefix):], marker)
	if !ok || mimeType == "" {
		return "", nil, ErrMalformed
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mimeType, data, nil
}
