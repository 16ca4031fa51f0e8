// Package handlers provides the HTTP handlers of the gallery.
//
// It includes handlers for:
//   - Directory listings as JSON, with the row width picked from the
//     User-Agent
//   - Source files and cached thumbnails
//   - Sweep progress, status, history and manual triggers
//   - Health, readiness and version
//
// Page templates are not rendered here; the front end consumes the JSON.
package handlers
