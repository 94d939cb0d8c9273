package main

import (
	"embed"
	"html/template"
	"io/fs"
	"strings"

	"github.com/Zachkp/portfolio/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"markdown": content.Markdown,
		"join":     strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
