// Package api exposes the HTTP interface for the progressd service: tracker
// lifecycle, range mutations, and the read-only status surface.
package api
