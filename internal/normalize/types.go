// Package normalize converts raw OpenGrok payloads, either web-interface
// markup or REST JSON, into the canonical result types returned by the
// client. Everything here is a pure function of the response body.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// SearchHit is one matching line.
type SearchHit struct {
	FilePath    string `json:"filePath"`
	LineNumber  int    `json:"lineNumber"` // 0 when unknown
	Snippet     string `json:"snippet"`    // may contain highlight markup
	ProjectName string `json:"projectName"`
}

// SearchResult is a normalized search response.
type SearchResult struct {
	Hits []SearchHit `json:"hits"`
	// TotalCount is the upstream's total number of matching documents
	// (files) when reported.
	TotalCount int `json:"totalCount,omitempty"`
	// Documents is the number of distinct files on this page. The search
	// start offset counts documents, not lines.
	Documents int `json:"documents"`
	// AnchorCount is the number of result anchors seen on an HTML page,
	// whether or not their href matched.
	AnchorCount int `json:"anchorCount,omitempty"`
}

// FileContent is a decoded source file.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Project string `json:"project,omitempty"`
}

// RefKind distinguishes definitions from references.
type RefKind string

const (
	KindDefinition RefKind = "definition"
	KindReference  RefKind = "reference"
)

// CrossReference locates a symbol definition or use.
type CrossReference struct {
	Symbol string  `json:"symbol"`
	File   string  `json:"file"`
	Line   int     `json:"line"`
	Kind   RefKind `json:"kind"`
}

// Project is one entry of a project listing.
type Project struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// Definition is one tag from /file/defs.
type Definition struct {
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Signature string `json:"signature,omitempty"`
	Text      string `json:"text,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Line      Int    `json:"line"`
	LineStart Int    `json:"lineStart"`
	LineEnd   Int    `json:"lineEnd"`
}

// AnnotationLine is the blame record for one line.
type AnnotationLine struct {
	Line        int    `json:"line"`
	Revision    string `json:"revision"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// HistoryEntry is one changeset touching a path.
type HistoryEntry struct {
	Revision string   `json:"revision"`
	Date     Time     `json:"date"`
	Author   string   `json:"author"`
	Tags     string   `json:"tags,omitempty"`
	Message  string   `json:"message"`
	Files    []string `json:"files,omitempty"`
}

// History is a page of history entries.
type History struct {
	Entries []HistoryEntry `json:"entries"`
	Start   Int            `json:"start"`
	Count   Int            `json:"count"`
	Total   Int            `json:"total"`
}

// DirectoryEntry is one child of a listed directory.
type DirectoryEntry struct {
	Path            string `json:"path"`
	IsDirectory     bool   `json:"isDirectory"`
	NumLines        Int    `json:"numLines"`
	LOC             Int    `json:"loc"`
	Size            Int    `json:"size"`
	Date            Time   `json:"date"`
	Description     string `json:"description,omitempty"`
	PathDescription string `json:"pathDescription,omitempty"`
}

// Suggestion is one completion candidate.
type Suggestion struct {
	Phrase   string   `json:"phrase"`
	Projects []string `json:"projects,omitempty"`
	Score    float64  `json:"score"`
}

// Suggestions is the /suggest response.
type Suggestions struct {
	Suggestions   []Suggestion `json:"suggestions"`
	Time          Int          `json:"time"`
	Identifier    string       `json:"identifier,omitempty"`
	QueryText     string       `json:"queryText,omitempty"`
	PartialResult bool         `json:"partialResult"`
}

// Message is a server message attached to a tag.
type Message struct {
	Tags         []string `json:"tags"`
	MessageLevel string   `json:"messageLevel,omitempty"`
	Text         string   `json:"text"`
	Created      Time     `json:"created"`
	Expiration   Time     `json:"expiration"`
}

// Int decodes from a JSON number, a numeric string or null. Non-numeric
// strings decode to 0.
type Int int

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*i = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = Int(ParseLine(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*i = Int(f)
	return nil
}

// Time decodes from epoch milliseconds, an RFC 3339 string or null, and
// encodes as RFC 3339 (or null when zero).
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t.Time = parseTimeString(s)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	t.Time = time.UnixMilli(ms).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000+0000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// ParseLine converts a line-number field to an int. Anything that is not
// a non-negative decimal integer yields 0.
func ParseLine(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ProjectOf returns the first segment of an absolute source path.
func ProjectOf(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

// dedupe drops hits whose (path, line) was already seen; the first wins.
func dedupe(hits []SearchHit) []SearchHit {
	type key struct {
		path string
		line int
	}
	seen := make(map[key]struct{}, len(hits))
	out := hits[:0]
	for _, h := range hits {
		k := key{h.FilePath, h.LineNumber}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, h)
	}
	return out
}

// countDocuments returns the number of distinct files among hits.
func countDocuments(hits []SearchHit) int {
	files := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		files[h.FilePath] = struct{}{}
	}
	return len(files)
}

// ToCrossReferences maps search hits to cross references of kind.
func ToCrossReferences(symbol string, kind RefKind, hits []SearchHit) []CrossReference {
	out := make([]CrossReference, 0, len(hits))
	for _, h := range hits {
		out = append(out, CrossReference{Symbol: symbol, File: h.FilePath, Line: h.LineNumber, Kind: kind})
	}
	return out
}

// DefinitionsToCrossReferences maps /file/defs tags in file to definitions.
func DefinitionsToCrossReferences(file string, defs []Definition) []CrossReference {
	out := make([]CrossReference, 0, len(defs))
	for _, d := range defs {
		line := int(d.Line)
		if line == 0 {
			line = int(d.LineStart)
		}
		out = append(out, CrossReference{Symbol: d.Symbol, File: file, Line: line, Kind: KindDefinition})
	}
	return out
}
