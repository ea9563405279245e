package views

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"net/http"
)

//go:embed templates/*.html
var FS embed.FS

// Page names.
const (
	Signup  = "signup"
	Login   = "login"
	Resend  = "resend"
	Profile = "profile"
	Service = "service"
)

var pages = map[string]*htmpl.Template{}

func init() {
	for _, name := range []string{Signup, Login, Resend, Profile, Service} {
		pages[name] = htmpl.Must(htmpl.ParseFS(FS, "templates/layout.html", "templates/"+name+".html"))
	}
}

// Render executes the named page into w. Nothing is written when rendering
// fails.
func Render(w http.ResponseWriter, name string, data interface{}) error {
	t, ok := pages[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
