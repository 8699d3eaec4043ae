package opengrok

import (
	"net/url"
	"strconv"
	"strings"
)

// SearchQuery holds the logical search fields. At least one of Full, Defs,
// Refs, Path or Hist must be set.
type SearchQuery struct {
	Full       string
	Defs       string
	Refs       string
	Path       string
	Hist       string
	Type       string
	Projects   []string
	MaxResults int
	Start      int
}

// empty reports whether no search field is set.
func (q SearchQuery) empty() bool {
	return strings.TrimSpace(q.Full+q.Defs+q.Refs+q.Path+q.Hist) == ""
}

// queryKeys maps logical fields to a backend's query parameter names.
type queryKeys struct {
	full, defs, refs, path, hist, typ string
	project                           string
	maxResults, start                 string
}

var (
	htmlKeys = queryKeys{
		full:       "full",
		defs:       "defs",
		refs:       "refs",
		path:       "path",
		hist:       "hist",
		typ:        "type",
		project:    "project",
		maxResults: "n",
		start:      "start",
	}
	restKeys = queryKeys{
		full:       "full",
		defs:       "def",
		refs:       "symbol",
		path:       "path",
		hist:       "hist",
		typ:        "type",
		project:    "projects",
		maxResults: "maxresults",
		start:      "start",
	}
)

func (k queryKeys) encode(q SearchQuery) url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	set(k.full, q.Full)
	set(k.defs, q.Defs)
	set(k.refs, q.Refs)
	set(k.path, q.Path)
	set(k.hist, q.Hist)
	set(k.typ, q.Type)
	for _, p := range q.Projects {
		v.Add(k.project, p)
	}
	if q.MaxResults > 0 {
		v.Set(k.maxResults, strconv.Itoa(q.MaxResults))
	}
	if q.Start > 0 {
		v.Set(k.start, strconv.Itoa(q.Start))
	}
	return v
}

// SuggestQuery asks for completions of Text in Field.
type SuggestQuery struct {
	Projects []string
	// Field is one of full, defs, refs, path, hist, type. Default full.
	Field string
	Text  string
	// Caret is the cursor position in Text. Default end of Text.
	Caret int
}

func (q SuggestQuery) encode() url.Values {
	field := q.Field
	if field == "" {
		field = "full"
	}
	caret := q.Caret
	if caret <= 0 || caret > len(q.Text) {
		caret = len(q.Text)
	}

	v := url.Values{}
	v.Set("field", field)
	v.Set(field, q.Text)
	v.Set("caret", strconv.Itoa(caret))
	for _, p := range q.Projects {
		v.Add("projects", p)
	}
	return v
}

// sourcePath returns path with exactly one leading slash.
func sourcePath(path string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
}

// withProject prefixes path with the project segment.
func withProject(project, path string) string {
	return "/" + strings.Trim(project, "/") + sourcePath(path)
}
