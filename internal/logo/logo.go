// Package logo turns uploaded images into the data URIs stored in settings.
package logo

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// MaxBytes caps the decoded image size.
const MaxBytes = 2 << 20

var mimeTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// Allowed reports whether mime is an accepted image type.
func Allowed(mime string) bool { return mimeTypes[mime] }

// Encode validates data against mime and returns a base64 data URI. An
// empty mime is detected from the content.
func Encode(data []byte, mime string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("logo: empty image")
	}
	if len(data) > MaxBytes {
		return "", fmt.Errorf("logo: image too large: %d bytes (max %d)", len(data), MaxBytes)
	}
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	if mime == "" || mime == "application/octet-stream" {
		mime = detect(data)
	}
	if !Allowed(mime) {
		return "", fmt.Errorf("logo: unsupported image type %q (allowed: png, jpeg, gif, webp, svg)", mime)
	}
	if err := validateMagicBytes(data, mime); err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Decode parses a data:<mime>;base64,<data> URI.
func Decode(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("logo: not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("logo: invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("logo: only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("logo: invalid base64 data: %w", err)
		}
	}
	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return data, mime, nil
}

// Normalize decodes uri, validates it, and re-encodes it canonically.
func Normalize(uri string) (string, error) {
	data, mime, err := Decode(uri)
	if err != nil {
		return "", err
	}
	return Encode(data, mime)
}

func detect(data []byte) string {
	if isSVG(data) {
		return "image/svg+xml"
	}
	return strings.Split(http.DetectContentType(data), ";")[0]
}

func isSVG(data []byte) bool {
	prefix := data
	if len(prefix) > 1024 {
		prefix = prefix[:1024]
	}
	return bytes.Contains(prefix, []byte("<svg"))
}

// validateMagicBytes verifies file content matches the declared type.
func validateMagicBytes(data []byte, mime string) error {
	if mime == "image/svg+xml" {
		if !isSVG(data) {
			return fmt.Errorf("logo: content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if detected != mime {
		return fmt.Errorf("logo: content does not match %s (detected: %s)", mime, detected)
	}
	return nil
}
