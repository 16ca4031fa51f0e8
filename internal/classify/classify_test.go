package classify

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyName(t *testing.T) {
	tests := []struct {
		name  string
		isDir bool
		want  Classification
	}{
		{"photos", true, Directory},
		{"photo.jpg", true, Directory},
		{"photo.jpg", false, ImageGeneric},
		{"PHOTO.JPG", false, ImageGeneric},
		{"scan.tiff", false, ImageGeneric},
		{"logo.svg", false, ImageGeneric},
		{"backup.tar.gz", false, Archive},
		{"backup.TAR.GZ", false, Archive},
		{"dump.gz", false, Archive},
		{"src.tar.xz", false, Archive},
		{"src.tar.bz2", false, Archive},
		{"bundle.tgz", false, Archive},
		{"files.zip", false, Archive},
		{"files.7z", false, Archive},
		{"files.rar", false, Archive},
		{"song.mp3", false, Audio},
		{"song.flac", false, Audio},
		{"install.iso", false, DiskImage},
		{"app.dmg", false, DiskImage},
		{"sans.ttf", false, Font},
		{"sans.woff2", false, Font},
		{"letter.doc", false, Document},
		{"letter.docx", false, Document},
		{"letter.odt", false, Document},
		{"deck.pptx", false, Presentation},
		{"deck.odp", false, Presentation},
		{"budget.xlsx", false, Spreadsheet},
		{"budget.ods", false, Spreadsheet},
		{"export.csv", false, Spreadsheet},
		{"manual.pdf", false, PDF},
		{"build.sh", false, ScriptText},
		{"tool.py", false, ScriptText},
		{"clip.mp4", false, Video},
		{"clip.mkv", false, Video},
		{"README.txt", false, PlainText},
		{"notes.md", false, PlainText},
		{"firmware.bin", false, Binary},
		{"Makefile", false, Binary},
		{"noext", false, Binary},
		{"", false, Binary},
		{"weird.", false, Binary},
		{"data.json", false, Binary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyName(tt.name, tt.isDir); got != tt.want {
				t.Errorf("ClassifyName(%q, %v) = %q, want %q", tt.name, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestClassifyDirEntry(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "album.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "song.ogg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]Classification{}
	for _, e := range entries {
		got[e.Name()] = Classify(e)
	}
	if got["album.jpg"] != Directory {
		t.Errorf("directory named like an image classified as %q", got["album.jpg"])
	}
	if got["song.ogg"] != Audio {
		t.Errorf("song.ogg classified as %q", got["song.ogg"])
	}

	info, err := os.Stat(filepath.Join(dir, "song.ogg"))
	if err != nil {
		t.Fatal(err)
	}
	var _ Entry = fs.FileInfoToDirEntry(info)
	if c := Classify(info); c != Audio {
		t.Errorf("Classify(FileInfo) = %q, want audio", c)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.tar.gz", ".tgz"},
		{"a.gz", ".tgz"},
		{"a.tar.zst", ".tzst"},
		{"a.TBZ", ".tbz2"},
		{"a.JPG", ".jpg"},
		{"a", ""},
		{".gz", ".gz"},
	}
	for _, tt := range tests {
		if got := Extension(tt.name); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.jpg", "image/jpeg"},
		{"a.PNG", "image/png"},
		{"a.tar.gz", "application/gzip"},
		{"a.mp4", "video/mp4"},
		{"a.unknown", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MimeType(tt.name); got != tt.want {
			t.Errorf("MimeType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestThumbnailable(t *testing.T) {
	yes := []string{"a.jpg", "a.JPEG", "a.png", "a.gif", "a.bmp", "a.webp", "a.tif", "a.tiff"}
	no := []string{"a.svg", "a.heic", "a.ico", "a.txt", "a", "a.jpg.txt"}
	for _, n := range yes {
		if !Thumbnailable(n) {
			t.Errorf("Thumbnailable(%q) = false, want true", n)
		}
	}
	for _, n := range no {
		if Thumbnailable(n) {
			t.Errorf("Thumbnailable(%q) = true, want false", n)
		}
	}
}

func TestThumbnailableImpliesImage(t *testing.T) {
	for ext := range thumbnailable {
		if c := ClassifyName("x"+ext, false); c != ImageGeneric {
			t.Errorf("thumbnailable extension %s classified as %q", ext, c)
		}
	}
}

func TestIcon(t *testing.T) {
	if Icon(ImageThumbed) != "" {
		t.Errorf("Icon(ImageThumbed) = %q, want empty", Icon(ImageThumbed))
	}
	if Icon(Directory) != "folder.png" {
		t.Errorf("Icon(Directory) = %q", Icon(Directory))
	}
	if Icon(Classification("nope")) != "binary.png" {
		t.Errorf("unknown classification should fall back to binary icon")
	}
	for _, c := range All {
		if c == ImageThumbed {
			continue
		}
		if Icon(c) == "" {
			t.Errorf("Icon(%q) is empty", c)
		}
	}
}

func TestClassificationHelpers(t *testing.T) {
	if !ImageThumbed.IsImage() || !ImageGeneric.IsImage() || Directory.IsImage() {
		t.Error("IsImage mismatch")
	}
	if len(All) != 15 {
		t.Errorf("len(All) = %d, want 15", len(All))
	}
	for _, c := range All {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if Classification("bogus").Valid() {
		t.Error("bogus classification reported valid")
	}
	if Video.String() != "video" {
		t.Errorf("String() = %q", Video.String())
	}
}
