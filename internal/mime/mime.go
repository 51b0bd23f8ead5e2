// Package mime maps image file extensions to the MIME types Quail accepts.
package mime

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

// FromExtension returns the image MIME type for ext. The lookup is
// case-insensitive and accepts the extension with or without its leading dot.
// ok is false for anything that is not a supported image.
func FromExtension(ext string) (mimeType string, ok bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	mimeType, ok = imageTypes[ext]
	return mimeType, ok
}

// FromName is FromExtension applied to the extension of a file name.
func FromName(name string) (string, bool) {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "", false
	}
	return FromExtension(name[i+1:])
}

// Extension returns the preferred extension, without the dot, for an image
// MIME type. Parameters such as "; charset=utf-8" are ignored.
func Extension(mimeType string) (string, bool) {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if mimeType == "image/jpeg" {
		return "jpg", true
	}
	for ext, t := range imageTypes {
		if t == mimeType {
			return ext, true
		}
	}
	return "", false
}

// Sniff returns the content type detected from the leading bytes of data.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

// Matches reports whether data looks like declared. SVG is text based and
// sniffs as XML or plain text in some editors' output, so it is only checked
// for the <svg marker.
func Matches(data []byte, declared string) bool {
	if declared == "image/svg+xml" {
		head := data
		if len(head) > 1024 {
			head = head[:1024]
		}
		return strings.Contains(string(head), "<svg")
	}
	return mimetype.Detect(data).Is(declared)
}
