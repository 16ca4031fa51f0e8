// Command thumbsweep runs gallery maintenance from the command line.
//
// Usage:
//
//	thumbsweep <command>
//
// Commands:
//
//	sweep   Walk the source tree once and generate every missing
//	        thumbnail. On a terminal a progress bar is redrawn in place;
//	        otherwise one line is printed per update.
//
//	gc      Remove thumbnails whose source is gone or has changed, empty
//	        mirror directories and stale temporary files, then prune
//	        failure records older than FAILURE_RETENTION.
//
//	status  Print the entries left in a running pass (from the progress
//	        file), the failure ledger size and the last sweeps.
//
// Configuration is loaded exactly as the server loads it, so the same
// environment or CONFIG_FILE can be used for both. A sweep started here
// and one running in the server do not conflict: artifacts are never
// overwritten and appear atomically.
package main
