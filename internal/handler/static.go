package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// StaticFiles serves files below root for any unmatched GET or HEAD request.
// "/" serves index.html. Missing files, directories and anything else get a
// plain 404.
func StaticFiles(root string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}

		// Cleaning against "/" keeps the result inside root.
		rel := path.Clean("/" + c.Request.URL.Path)
		if rel == "/" {
			rel = "/index.html"
		}
		full := filepath.Join(root, filepath.FromSlash(rel))

		f, err := os.Open(full)
		if err != nil {
			notFound(c)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			notFound(c)
			return
		}
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	}
}

func notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "File not found")
}
