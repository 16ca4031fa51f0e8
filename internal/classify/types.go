package classify

// Classification is the semantic category of a directory entry. The string
// values are what listing consumers see.
type Classification string

const (
	// Directory is any directory, including symlinked ones.
	Directory Classification = "directory"
	// ImageThumbed is an image whose thumbnail artifact exists in the cache.
	ImageThumbed Classification = "image-thumbed"
	// ImageGeneric is an image without a cached thumbnail.
	ImageGeneric Classification = "image-generic"
	// Archive covers tar, zip, rar, 7z and compressed tarballs.
	Archive Classification = "archive"
	// Audio is any audio/* media type.
	Audio Classification = "audio"
	// DiskImage covers ISO and DMG style images.
	DiskImage Classification = "disk-image"
	// Font is any font file.
	Font Classification = "font"
	// Document is a word-processor document.
	Document Classification = "document"
	// Presentation is a slide deck.
	Presentation Classification = "presentation"
	// Spreadsheet includes CSV.
	Spreadsheet Classification = "spreadsheet"
	// PDF is a PDF document.
	PDF Classification = "pdf"
	// ScriptText is a shell or interpreter script.
	ScriptText Classification = "script-text"
	// PlainText is any other text/* media type.
	PlainText Classification = "plain-text"
	// Video is any video/* media type.
	Video Classification = "video"
	// Binary is the fallback for everything unrecognised.
	Binary Classification = "binary-generic"
)

// All lists every classification in display order.
var All = []Classification{
	Directory, ImageThumbed, ImageGeneric, Archive, Audio, DiskImage, Font,
	Document, Presentation, Spreadsheet, PDF, ScriptText, PlainText, Video, Binary,
}

var icons = map[Classification]string{
	Directory:    "folder.png",
	ImageGeneric: "image.png",
	Archive:      "zip.png",
	Audio:        "audio.png",
	DiskImage:    "cd-image.png",
	Font:         "font.png",
	Document:     "office-doc.png",
	Presentation: "office-present.png",
	Spreadsheet:  "office-spreadsheet.png",
	PDF:          "pdf.png",
	ScriptText:   "text-script.png",
	PlainText:    "text-plain.png",
	Video:        "video.png",
	Binary:       "binary.png",
}

// Icon returns the icon asset name for c. ImageThumbed has no icon since the
// thumbnail itself is shown; it returns "".
func Icon(c Classification) string {
	if c == ImageThumbed {
		return ""
	}
	if name, ok := icons[c]; ok {
		return name
	}
	return icons[Binary]
}

// IsImage reports whether c is one of the two image categories.
func (c Classification) IsImage() bool {
	return c == ImageThumbed || c == ImageGeneric
}

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	for _, known := range All {
		if c == known {
			return true
		}
	}
	return false
}

func (c Classification) String() string {
	return string(c)
}
