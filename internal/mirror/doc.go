// Package mirror walks a source tree and tells the caller, for each entry,
// where that entry lives in the mirrored cache tree.
//
// The walk is what a sweep iterates over, and Count is the quick pre-pass
// that gives a sweep its progress total. Both apply the same rules: hidden
// entries and the cache itself are invisible, symlinks are followed unless
// they point back at an ancestor directory, and a directory that cannot be
// read is simply empty.
package mirror
