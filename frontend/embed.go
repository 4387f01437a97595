//go:build !noembed

// Package frontend provides the embedded web UI: the index page template and
// the static script it loads.
package frontend

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var content embed.FS

// TemplatesFS holds the HTML templates, rooted at templates/
var TemplatesFS fs.FS

// StaticFS holds the static assets served under /static/
var StaticFS fs.FS

func init() {
	// Strip the directory prefixes to serve files directly
	TemplatesFS, _ = fs.Sub(content, "templates")
	StaticFS, _ = fs.Sub(content, "static")
}
