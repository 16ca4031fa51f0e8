// Package classify maps directory entries to the semantic categories used
// for icon selection and thumbnail eligibility.
//
// Classification is a pure function of the entry name and kind. A name is
// lowercased, compound compressed suffixes (".tar.gz", ".gz", ".tar.xz", ...)
// are folded into one archive extension, the extension is looked up in a
// static media-type table, and the media type is matched against ordered
// category rules. Anything the table does not know is binary-generic.
//
// Whether an image is thumbed or generic depends on the cache, which this
// package does not look at: ClassifyName always returns ImageGeneric for
// images and the listing upgrades it once an artifact is found.
package classify
