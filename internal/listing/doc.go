// Package listing assembles what the gallery shows for one directory:
// every visible entry with its classification and either a thumbnail URL
// (when the cache holds an artifact for the entry's current fingerprint)
// or an icon URL.
//
//	a := listing.New(listing.Config{Layout: layout})
//	l, err := a.List(ctx, "holidays/2019")
//	switch {
//	case errors.Is(err, listing.ErrNotFound):
//	    // 404
//	case errors.Is(err, listing.ErrNotDirectory):
//	    // serve the file
//	}
//
// Listing never walks below the requested directory.
package listing
