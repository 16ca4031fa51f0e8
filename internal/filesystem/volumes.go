package filesystem

import (
	"path/filepath"
	"sort"
	"strings"
)

// VolumeResolver maps paths to volume labels ("source", "cache", "database")
// for metric labels, using longest-prefix matching on absolute paths.
type VolumeResolver struct {
	mounts []volumeMount // longest path first
}

type volumeMount struct {
	path string // absolute, with trailing slash
	name string
}

// NewVolumeResolver builds a resolver from volume name to directory.
//
//	NewVolumeResolver(map[string]string{
//	    "source": "/srv/gallery",
//	    "cache":  "/srv/gallery/.thumbs",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		if path == "" {
			continue
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		mounts = append(mounts, volumeMount{path: withSlash(absPath), name: name})
	}
	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})
	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the label for path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}
	absPath = withSlash(absPath)
	for _, m := range vr.mounts {
		if strings.HasPrefix(absPath, m.path) {
			return m.name
		}
	}
	return "unknown"
}

func withSlash(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level resolver. Call once at startup.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}
