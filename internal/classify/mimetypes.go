package classify

// mimeTypes maps lowercase extensions to media types. Categories are derived
// from the media type rather than listed per extension, so adding an
// extension here is enough to classify it.
var mimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/vnd.microsoft.icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".psd":  "image/vnd.adobe.photoshop",
	".xcf":  "image/x-xcf",

	// Archives
	".tar":  "application/x-tar",
	".tgz":  "application/x-gtar",
	".tbz2": "application/x-gtar",
	".txz":  "application/x-gtar",
	".tzst": "application/x-gtar",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".7z":   "application/x-7z-compressed",
	".gz":   "application/gzip",
	".bz2":  "application/x-bzip2",
	".xz":   "application/x-xz",
	".zst":  "application/zstd",

	// Audio
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/x-wav",
	".wma":  "audio/x-ms-wma",
	".mid":  "audio/midi",
	".midi": "audio/midi",
	".aif":  "audio/x-aiff",
	".aiff": "audio/x-aiff",

	// Disk images
	".iso": "application/x-iso9660-image",
	".dmg": "application/x-apple-diskimage",
	".img": "application/x-raw-diskimage",

	// Fonts
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".woff":  "font/woff",
	".woff2": "font/woff2",

	// Documents
	".doc":  "application/msword",
	".dot":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".odt":  "application/vnd.oasis.opendocument.text",
	".rtf":  "application/rtf",

	// Presentations
	".ppt":  "application/vnd.ms-powerpoint",
	".pps":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odp":  "application/vnd.oasis.opendocument.presentation",
	".key":  "application/vnd.apple.keynote.presentation",

	// Spreadsheets
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",

	// PDF
	".pdf": "application/pdf",

	// Scripts
	".py":   "text/x-python",
	".sh":   "application/x-sh",
	".bash": "application/x-sh",
	".zsh":  "application/x-sh",
	".pl":   "text/x-perl",
	".rb":   "text/x-ruby",
	".js":   "text/javascript",
	".ps1":  "text/x-powershell",

	// Video
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Text
	".txt":  "text/plain",
	".text": "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".nfo":  "text/plain",
	".srt":  "text/plain",
	".ini":  "text/plain",
	".conf": "text/plain",
	".json": "application/json",
	".xml":  "text/xml",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".go":   "text/x-go",
	".c":    "text/x-c",
	".h":    "text/x-c",
}

// compoundSuffixes folds compressed-container suffixes into a single
// archive extension before classification. Longer suffixes come first.
// The bare compressor extensions have their own media types above for
// serving, but classify as archives through this table.
var compoundSuffixes = []struct {
	suffix string
	ext    string
}{
	{".tar.gz", ".tgz"},
	{".tar.bz2", ".tbz2"},
	{".tar.xz", ".txz"},
	{".tar.zst", ".tzst"},
	{".gz", ".tgz"},
	{".bz2", ".tbz2"},
	{".xz", ".txz"},
	{".zst", ".tzst"},
	{".tbz", ".tbz2"},
}

// thumbnailable is the set of extensions the generator can decode.
var thumbnailable = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}
