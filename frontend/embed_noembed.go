//go:build noembed

// Package frontend provides the embedded web UI.
// This file is used when building with -tags noembed (CI linting/testing).
// It provides stub filesystems so the code compiles without the UI assets.
package frontend

import (
	"io/fs"
	"testing/fstest"
)

// TemplatesFS is a stub holding a minimal index template.
var TemplatesFS fs.FS = fstest.MapFS{
	"index.html": &fstest.MapFile{Data: []byte("<!-- noembed stub -->")},
}

// StaticFS is a stub holding an empty script.
var StaticFS fs.FS = fstest.MapFS{
	"js/script.js": &fstest.MapFile{Data: []byte("// noembed stub\n")},
}
