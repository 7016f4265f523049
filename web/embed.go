// Package web embeds the dashboard page template and its static assets.
//
// index.html is parsed once at startup into the server-held document;
// static/ is served as-is under /static/.
//
//	view, err := dashboard.NewView(web.Page(), log)
package web

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
)

//go:embed index.html
var index []byte

//go:embed all:static
var static embed.FS

// Page returns a reader over the embedded page template.
func Page() io.Reader {
	return bytes.NewReader(index)
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic("web: static assets missing from build: " + err.Error())
	}
	return sub
}
