package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

var extensionsByContentType = map[string]string{
	"image/jpeg":         "jpg",
	"image/png":          "png",
	"image/gif":          "gif",
	"image/svg+xml":      "svg",
	"image/webp":         "webp",
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/zip": "zip",
	"text/plain":      "txt",
	"text/html":       "html",
	"text/csv":        "csv",
	"text/calendar":   "ics",
	"text/vcard":      "vcf",
}

// NormalizeContentType lowercases the media type and drops parameters.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// GetFileExtension prefers the filename's own extension and falls back to
// the content type, then "bin".
func GetFileExtension(filename, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if ext, ok := extensionsByContentType[NormalizeContentType(contentType)]; ok {
		return ext
	}
	return "bin"
}
