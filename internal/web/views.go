package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/samvad-hq/picture-gallery/internal/domain"
	"github.com/samvad-hq/picture-gallery/internal/site"
)

//go:embed views/*.gohtml
var viewsFS embed.FS

type views struct {
	home     *template.Template
	pictures *template.Template
	picture  *template.Template
}

func parseViews() (*views, error) {
	parse := func(page string) (*template.Template, error) {
		t, err := template.ParseFS(viewsFS, "views/layout.gohtml", "views/card.gohtml", "views/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", page, err)
		}
		return t, nil
	}

	v := &views{}
	var err error
	if v.home, err = parse("home.gohtml"); err != nil {
		return nil, err
	}
	if v.pictures, err = parse("pictures.gohtml"); err != nil {
		return nil, err
	}
	if v.picture, err = parse("picture.gohtml"); err != nil {
		return nil, err
	}
	return v, nil
}

// layoutData is what the layout shell reads.
type layoutData struct {
	Site      site.Site
	Active    string
	PageTitle string
	// RefreshSeconds adds a meta refresh while a query is still loading.
	RefreshSeconds int
}

type cardView struct {
	Picture domain.Picture
	Image   string
}

type homePage struct {
	layoutData
}

type picturesPage struct {
	layoutData
	IsLoading bool
	Error     string
	HasData   bool
	Cards     []cardView
}

type picturePage struct {
	layoutData
	IsLoading bool
	Error     string
	Card      *cardView
}

// render executes t into a buffer first so a template error never leaves a
// half-written page.
func render(w http.ResponseWriter, t *template.Template, status int, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return fmt.Errorf("execute %s: %w", t.Name(), err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
