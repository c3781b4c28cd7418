// Package web embeds the static intake and admin pages.
package web

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler returns an http.Handler serving the intake page at / and the
// admin page at /admin. Anything else under / is a 404.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		servePage(w, "static/index.html")
	})
	mux.HandleFunc("/admin", func(w http.ResponseWriter, _ *http.Request) {
		servePage(w, "static/admin.html")
	})
	return mux
}

func servePage(w http.ResponseWriter, path string) {
	data, err := staticFS.ReadFile(path)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}
