// Package httpui serves the static HTML test page: GET / returns a page
// with the WebSocket port template-substituted.
package httpui

import (
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed testpage.html
var testPageSource string

var testPageTmpl = template.Must(template.New("testpage").Parse(testPageSource))

type pageData struct {
	WebSocketPort string
}

// Handler returns an http.Handler that renders the bundled test page with
// wsPort substituted into its WebSocket connect URL.
func Handler(wsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := testPageTmpl.Execute(w, pageData{WebSocketPort: wsPort}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
