package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// restHit is one entry of a /search "results" list.
type restHit struct {
	Line       string          `json:"line"`
	LineNumber json.RawMessage `json:"lineNumber"`
	Tag        string          `json:"tag"`
}

type restSearch struct {
	Time          Int            `json:"time"`
	ResultCount   Int            `json:"resultCount"`
	StartDocument Int            `json:"startDocument"`
	EndDocument   Int            `json:"endDocument"`
	Results       orderedResults `json:"results"`
}

// orderedResults keeps the upstream file order of the "results" object,
// which is relevance order.
type orderedResults struct {
	paths []string
	hits  map[string][]restHit
}

func (o *orderedResults) UnmarshalJSON(b []byte) error {
	o.hits = make(map[string][]restHit)
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("results: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		path, ok := tok.(string)
		if !ok {
			return fmt.Errorf("results: expected path key, got %v", tok)
		}
		var hits []restHit
		if err := dec.Decode(&hits); err != nil {
			return fmt.Errorf("results[%q]: %w", path, err)
		}
		if _, dup := o.hits[path]; !dup {
			o.paths = append(o.paths, path)
		}
		o.hits[path] = append(o.hits[path], hits...)
	}
	_, err = dec.Token()
	return err
}

// RESTSearch flattens a /search response into hits, one per line record,
// in upstream file order. Every record is kept, so a response with K files
// of H_i records each yields sum(H_i) hits.
func RESTSearch(body []byte) (*SearchResult, error) {
	var raw restSearch
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.NewMalformedResponse("search", "unexpected search response shape", err)
	}

	res := &SearchResult{
		Hits:       []SearchHit{},
		TotalCount: int(raw.ResultCount),
		Documents:  len(raw.Results.paths),
	}
	for _, path := range raw.Results.paths {
		project := ProjectOf(path)
		for _, h := range raw.Results.hits[path] {
			res.Hits = append(res.Hits, SearchHit{
				FilePath:    path,
				LineNumber:  lineField(h.LineNumber),
				Snippet:     h.Line,
				ProjectName: project,
			})
		}
	}
	return res, nil
}

// lineField accepts "12", 12 or null.
func lineField(raw json.RawMessage) int {
	var i Int
	if len(raw) == 0 || json.Unmarshal(raw, &i) != nil {
		return 0
	}
	return int(i)
}

// Decode unmarshals a REST payload into v, classifying shape mismatches
// as MalformedUpstreamResponse.
func Decode(op string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewMalformedResponse(op, "unexpected response shape", err)
	}
	return nil
}

// Strings decodes a JSON array of strings. An empty body is an empty list.
func Strings(op string, body []byte) ([]string, error) {
	out := []string{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := Decode(op, body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Raw validates that body is JSON and returns it unchanged. An empty body
// decodes to null.
func Raw(op string, body []byte) (json.RawMessage, error) {
	b := bytes.TrimSpace(body)
	if len(b) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(b) {
		return nil, errors.NewMalformedResponse(op, "response is not valid JSON", nil)
	}
	return json.RawMessage(b), nil
}

// Text returns a plain-text body trimmed. JSON string bodies are unquoted.
func Text(body []byte) string {
	b := bytes.TrimSpace(body)
	if len(b) >= 2 && b[0] == '"' {
		var s string
		if json.Unmarshal(b, &s) == nil {
			return s
		}
	}
	return string(b)
}

// Annotation decodes /annotation, numbering lines from 1.
func Annotation(body []byte) ([]AnnotationLine, error) {
	var raw []struct {
		Revision    string `json:"revision"`
		Author      string `json:"author"`
		Description string `json:"description"`
		Version     string `json:"version"`
	}
	if err := Decode("getAnnotation", body, &raw); err != nil {
		return nil, err
	}
	out := make([]AnnotationLine, 0, len(raw))
	for i, r := range raw {
		out = append(out, AnnotationLine{
			Line:        i + 1,
			Revision:    r.Revision,
			Author:      r.Author,
			Description: r.Description,
			Version:     r.Version,
		})
	}
	return out, nil
}

// DirectoryListing decodes /list.
func DirectoryListing(body []byte) ([]DirectoryEntry, error) {
	out := []DirectoryEntry{}
	if err := Decode("getDirectoryListing", body, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Path = strings.TrimSpace(out[i].Path)
	}
	return out, nil
}
