// internal/domain/models/mediatypes.go
package models

import "strings"

// Canonical media categories for message attachments.
const (
	MediaImage    = "image"
	MediaDocument = "document"
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaArchive  = "archive"
)

// MediaCategories lists the categories in display order.
var MediaCategories = []string{MediaImage, MediaDocument, MediaVideo, MediaAudio, MediaArchive}

// mediaExtensions maps a lowercase extension (without dot) to its category.
// This is the single source of truth for which uploads are accepted.
var mediaExtensions = map[string]string{
	"jpg": MediaImage, "jpeg": MediaImage, "png": MediaImage, "gif": MediaImage, "webp": MediaImage,
	"pdf": MediaDocument, "doc": MediaDocument, "docx": MediaDocument, "ppt": MediaDocument,
	"pptx": MediaDocument, "xls": MediaDocument, "xlsx": MediaDocument, "txt": MediaDocument,
	"mp4": MediaVideo, "webm": MediaVideo, "mov": MediaVideo,
	"mp3": MediaAudio, "wav": MediaAudio, "ogg": MediaAudio,
	"zip": MediaArchive, "rar": MediaArchive, "7z": MediaArchive,
}

// MediaCategory returns the category for a file extension ("pdf" or ".PDF")
// and whether it is accepted.
func MediaCategory(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	c, ok := mediaExtensions[ext]
	return c, ok
}

// MediaExtensions returns the accepted extensions for a category.
func MediaExtensions(category string) []string {
	var out []string
	for ext, c := range mediaExtensions {
		if c == category {
			out = append(out, ext)
		}
	}
	return out
}
