// Package views renders the HTML pages from embedded templates. Every page
// gets an explicit view model; templates never reach for global state.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"inkwell/app/forms"
	"inkwell/app/models"
	"inkwell/app/query"
	"inkwell/app/services"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates
var files embed.FS

const (
	List   = "posts/list"
	Detail = "posts/detail"
	Share  = "posts/share"
	Search = "posts/search"
)

// Base is embedded in every page model.
type Base struct {
	Title   string
	Sidebar *services.Sidebar
}

// ListPage is the post list, optionally narrowed to a tag.
type ListPage struct {
	Base
	Tag  *models.Tag
	Page query.Page[*models.Post]
}

// DetailPage shows a post, its active comments and the comment form.
type DetailPage struct {
	Base
	Post       *models.Post
	Comments   []*models.Comment
	Similar    []*models.Post
	NewComment *models.Comment
	Form       forms.CommentData
	Errors     forms.ValidationErrors
}

// SharePage is the share-by-email form and its outcome.
type SharePage struct {
	Base
	Post    *models.Post
	Form    forms.ShareData
	Errors  forms.ValidationErrors
	Sent    bool
	Failure string
}

// SearchPage is the search form and its results.
type SearchPage struct {
	Base
	Query    string
	Searched bool
	Results  []*models.Post
	Errors   forms.ValidationErrors
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders s as HTML. Raw HTML in s is omitted.
func Markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(buf.String())
}

// linebreaks escapes s and turns blank-line separated blocks into paragraphs.
func linebreaks(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = template.HTMLEscapeString(l)
		}
		b.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>")
	}
	return template.HTML(b.String())
}

var funcs = template.FuncMap{
	"markdown":      Markdown,
	"truncatewords": query.TruncateWords,
	"linebreaks":    linebreaks,
	"date": func(t time.Time) string {
		return t.UTC().Format("Jan. 2, 2006 15:04")
	},
	"inc": func(i int) int { return i + 1 },
}

// Renderer executes the page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// Load parses the embedded templates.
func Load() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{List, Detail, Share, Search} {
		t, err := template.New(page).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/shared/*.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Renderer {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

// Render writes the named page. Output is buffered so a template error
// never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, page string, data interface{}) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
