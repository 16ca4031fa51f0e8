package classify

import (
	"path/filepath"
	"strings"
)

// Entry is the part of a directory entry the classifier needs.
// fs.DirEntry and fs.FileInfo both satisfy it.
type Entry interface {
	Name() string
	IsDir() bool
}

// Classify returns the category for entry. It never touches the filesystem.
func Classify(entry Entry) Classification {
	return ClassifyName(entry.Name(), entry.IsDir())
}

// ClassifyName classifies a bare name.
func ClassifyName(name string, isDir bool) Classification {
	if isDir {
		return Directory
	}
	return byMimeType(mimeTypes[Extension(name)])
}

// Extension returns the lowercase extension of name after compound suffixes
// such as ".tar.gz" have been folded into a single archive extension.
func Extension(name string) string {
	lower := strings.ToLower(name)
	for _, cs := range compoundSuffixes {
		if strings.HasSuffix(lower, cs.suffix) && len(lower) > len(cs.suffix) {
			return cs.ext
		}
	}
	return filepath.Ext(lower)
}

// MimeType returns the media type for name, or "application/octet-stream".
func MimeType(name string) string {
	if mt, ok := mimeTypes[filepath.Ext(strings.ToLower(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Thumbnailable reports whether the generator accepts name.
func Thumbnailable(name string) bool {
	return thumbnailable[filepath.Ext(strings.ToLower(name))]
}

// byMimeType applies the category rules in order; the first match wins.
func byMimeType(mt string) Classification {
	switch {
	case mt == "":
		return Binary
	case strings.HasPrefix(mt, "image/"):
		return ImageGeneric
	case containsAny(mt, "x-gtar", "x-tar", "zip", "rar", "x-7z"):
		return Archive
	case strings.HasPrefix(mt, "audio/"):
		return Audio
	case containsAny(mt, "iso9660-image", "diskimage"):
		return DiskImage
	case strings.HasPrefix(mt, "font/"):
		return Font
	case containsAny(mt, "msword", "wordprocessingml.document", "opendocument.text", "rtf"):
		return Document
	case containsAny(mt, "powerpoint", "presentation"):
		return Presentation
	case containsAny(mt, "spreadsheet", "excel", "text/csv"):
		return Spreadsheet
	case strings.Contains(mt, "pdf"):
		return PDF
	case containsAny(mt, "python", "x-sh", "perl", "ruby", "javascript", "powershell"):
		return ScriptText
	case strings.HasPrefix(mt, "video/"):
		return Video
	case strings.Contains(mt, "text"):
		return PlainText
	default:
		return Binary
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
