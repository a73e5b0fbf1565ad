package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var files embed.FS

// Templates is the page tree rooted at templates/.
func Templates() fs.FS {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}
