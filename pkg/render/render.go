// Package render is the template adapter (spec §4.2). The core only
// needs a render(source, vars) -> string function; this package supplies
// it with Go's text/template plus a filter set over path/string values,
// matching the filter names spec.md documents. No template back-end here
// does file I/O on the source string itself — only the read/readlines
// filters, invoked from inside a template, touch the filesystem.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"pipex/pkg/model"
)

// Renderer renders a template string against a variable bag.
type Renderer interface {
	Render(source string, vars map[string]any) (string, error)
}

var bracketSuffix = regexp.MustCompile(`\[[^]]*\]$`)

// TextRenderer implements Renderer with text/template and the filter
// functions spec.md names: basename, filename (no ext), stem (before
// first dot), ext, dirname, prefix, realpath, read, readlines, repr,
// quote (shell), jsonq, and an R-value literal quoter for vectors/lists.
type TextRenderer struct{}

func New() *TextRenderer { return &TextRenderer{} }

func (t *TextRenderer) Render(source string, vars map[string]any) (string, error) {
	tmpl, err := template.New("job").Funcs(filterFuncs).Parse(source)
	if err != nil {
		return "", model.NewError(model.KindTemplateRender, "parse", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", model.NewError(model.KindTemplateRender, "execute", err)
	}
	return buf.String(), nil
}

var filterFuncs = template.FuncMap{
	"basename": func(p string) string {
		return bracketSuffix.ReplaceAllString(filepath.Base(p), "")
	},
	"filename": func(p string) string {
		b := filepath.Base(p)
		return strings.TrimSuffix(b, filepath.Ext(b))
	},
	"stem": func(p string) string {
		b := filepath.Base(p)
		if i := strings.IndexByte(b, '.'); i >= 0 {
			return b[:i]
		}
		return b
	},
	"ext":      filepath.Ext,
	"dirname":  filepath.Dir,
	"prefix":   func(p string) string { return strings.TrimSuffix(p, filepath.Ext(p)) },
	"realpath": filepath.Abs,
	"read": func(p string) (string, error) {
		b, err := os.ReadFile(p)
		return string(b), err
	},
	"readlines": func(p string) ([]string, error) {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		return strings.Split(strings.TrimRight(string(b), "\n"), "\n"), nil
	},
	"repr": func(v any) string { return fmt.Sprintf("%#v", v) },
	"quote": func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	},
	"jsonq": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	// rvalue renders a Go value as an R literal: strings quoted, slices
	// become c(...), everything else via its default formatting.
	"rvalue": rvalue,
}

func rvalue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = rvalue(e)
		}
		return "c(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%v", x)
	}
}
