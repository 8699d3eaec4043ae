package opengrok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/normalize"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
)

const textPlain = "text/plain"

// restBackend talks to /api/{version}.
type restBackend struct {
	t *transport.Adapter
}

func (b *restBackend) Mode() config.Mode { return config.ModeREST }

func (b *restBackend) do(ctx context.Context, op, method, path string, q url.Values, opts ...transport.RequestOption) (*transport.Response, error) {
	resp, err := b.t.Do(ctx, method, path, q, nil, opts...)
	if err != nil {
		return nil, err
	}
	if err := classify(op, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *restBackend) get(ctx context.Context, op, path string, q url.Values, opts ...transport.RequestOption) (*transport.Response, error) {
	return b.do(ctx, op, http.MethodGet, path, q, opts...)
}

func pathQuery(path string) url.Values {
	return url.Values{"path": {sourcePath(path)}}
}

func (b *restBackend) Search(ctx context.Context, q SearchQuery) (*normalize.SearchResult, error) {
	resp, err := b.get(ctx, "search", "/search", restKeys.encode(q))
	if err != nil {
		return nil, err
	}
	return normalize.RESTSearch(resp.Body)
}

func (b *restBackend) FileContent(ctx context.Context, path string) (string, error) {
	resp, err := b.get(ctx, "getFile", "/file/content", pathQuery(path), transport.WithAccept(textPlain))
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

func (b *restBackend) Projects(ctx context.Context) ([]normalize.Project, error) {
	names, err := b.stringList(ctx, "listProjects", "/projects", nil)
	if err != nil {
		return nil, err
	}
	out := make([]normalize.Project, 0, len(names))
	for _, n := range names {
		out = append(out, normalize.Project{Name: n})
	}
	return out, nil
}

func (b *restBackend) Ping(ctx context.Context) error {
	_, err := b.get(ctx, "ping", "/system/ping", nil)
	return err
}

func (b *restBackend) Annotation(ctx context.Context, path string) ([]normalize.AnnotationLine, error) {
	resp, err := b.get(ctx, "getAnnotation", "/annotation", pathQuery(path))
	if err != nil {
		return nil, err
	}
	return normalize.Annotation(resp.Body)
}

func (b *restBackend) History(ctx context.Context, path string, start, maxEntries int) (*normalize.History, error) {
	q := pathQuery(path)
	q.Set("withFiles", "true")
	if start > 0 {
		q.Set("start", strconv.Itoa(start))
	}
	if maxEntries > 0 {
		q.Set("max", strconv.Itoa(maxEntries))
	}
	resp, err := b.get(ctx, "getHistory", "/history", q)
	if err != nil {
		return nil, err
	}
	var h normalize.History
	if err := normalize.Decode("getHistory", resp.Body, &h); err != nil {
		return nil, err
	}
	if h.Entries == nil {
		h.Entries = []normalize.HistoryEntry{}
	}
	return &h, nil
}

func (b *restBackend) DirectoryListing(ctx context.Context, path string) ([]normalize.DirectoryEntry, error) {
	resp, err := b.get(ctx, "getDirectoryListing", "/list", pathQuery(path))
	if err != nil {
		return nil, err
	}
	return normalize.DirectoryListing(resp.Body)
}

func (b *restBackend) FileDefinitions(ctx context.Context, path string) ([]normalize.Definition, error) {
	resp, err := b.get(ctx, "getFileDefinitions", "/file/defs", pathQuery(path))
	if err != nil {
		return nil, err
	}
	defs := []normalize.Definition{}
	if err := normalize.Decode("getFileDefinitions", resp.Body, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

func (b *restBackend) FileGenre(ctx context.Context, path string) (string, error) {
	return b.text(ctx, "getFileGenre", "/file/genre", pathQuery(path))
}

func (b *restBackend) IndexedProjects(ctx context.Context) ([]string, error) {
	return b.stringList(ctx, "getIndexedProjects", "/projects/indexed", nil)
}

func (b *restBackend) ProjectRepositories(ctx context.Context, project string) ([]string, error) {
	return b.stringList(ctx, "getProjectRepositories", "/projects/"+url.PathEscape(project)+"/repositories", nil)
}

func (b *restBackend) ProjectRepositoryTypes(ctx context.Context, project string) ([]string, error) {
	return b.stringList(ctx, "getProjectRepositoryTypes", "/projects/"+url.PathEscape(project)+"/repositories/type", nil)
}

func (b *restBackend) ProjectIndexedFiles(ctx context.Context, project string) ([]string, error) {
	return b.stringList(ctx, "getProjectIndexedFiles", "/projects/"+url.PathEscape(project)+"/files", nil)
}

func (b *restBackend) LastIndexTime(ctx context.Context) (string, error) {
	return b.text(ctx, "getLastIndexTime", "/system/indextime", nil)
}

func (b *restBackend) Version(ctx context.Context) (string, error) {
	return b.text(ctx, "getVersion", "/system/version", nil)
}

func (b *restBackend) Suggestions(ctx context.Context, q SuggestQuery) (*normalize.Suggestions, error) {
	resp, err := b.get(ctx, "getSuggestions", "/suggest", q.encode())
	if err != nil {
		return nil, err
	}
	var s normalize.Suggestions
	if err := normalize.Decode("getSuggestions", resp.Body, &s); err != nil {
		return nil, err
	}
	if s.Suggestions == nil {
		s.Suggestions = []normalize.Suggestion{}
	}
	return &s, nil
}

func (b *restBackend) SuggestConfig(ctx context.Context) (json.RawMessage, error) {
	return b.raw(ctx, "getSuggestConfig", "/suggest/config", nil)
}

func (b *restBackend) Groups(ctx context.Context) ([]string, error) {
	return b.stringList(ctx, "listGroups", "/groups", nil)
}

func (b *restBackend) Messages(ctx context.Context, tag string) ([]normalize.Message, error) {
	var q url.Values
	if tag != "" {
		q = url.Values{"tag": {tag}}
	}
	resp, err := b.get(ctx, "getMessages", "/messages", q)
	if err != nil {
		return nil, err
	}
	msgs := []normalize.Message{}
	if err := normalize.Decode("getMessages", resp.Body, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (b *restBackend) Configuration(ctx context.Context, field string) (json.RawMessage, error) {
	path := "/configuration"
	if field != "" {
		path += "/" + url.PathEscape(field)
	}
	return b.raw(ctx, "getConfiguration", path, nil)
}

func (b *restBackend) RepositoryProperty(ctx context.Context, field string, repositories []string) (json.RawMessage, error) {
	q := url.Values{}
	for _, r := range repositories {
		q.Add("repository", sourcePath(r))
	}
	return b.raw(ctx, "getRepositoryProperty", "/repositories/property/"+url.PathEscape(field), q)
}

func (b *restBackend) ReloadAuthorization(ctx context.Context) (*AsyncOperation, error) {
	resp, err := b.do(ctx, "reloadAuthorization", http.MethodPut, "/system/authorization/reload", nil)
	if err != nil {
		return nil, err
	}
	return asyncFrom("reloadAuthorization", resp)
}

func (b *restBackend) MarkProjectIndexed(ctx context.Context, project string) (*AsyncOperation, error) {
	resp, err := b.do(ctx, "markProjectIndexed", http.MethodPut, "/projects/"+url.PathEscape(project)+"/indexed", nil)
	if err != nil {
		return nil, err
	}
	return asyncFrom("markProjectIndexed", resp)
}

func (b *restBackend) Status(ctx context.Context, id string) (*OperationStatus, error) {
	resp, err := b.get(ctx, "getStatus", "/status/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return statusFrom(id, resp)
}

func (b *restBackend) stringList(ctx context.Context, op, path string, q url.Values) ([]string, error) {
	resp, err := b.get(ctx, op, path, q)
	if err != nil {
		return nil, err
	}
	return normalize.Strings(op, resp.Body)
}

func (b *restBackend) text(ctx context.Context, op, path string, q url.Values) (string, error) {
	resp, err := b.get(ctx, op, path, q, transport.WithAccept(textPlain))
	if err != nil {
		return "", err
	}
	return normalize.Text(resp.Body), nil
}

func (b *restBackend) raw(ctx context.Context, op, path string, q url.Values) (json.RawMessage, error) {
	resp, err := b.get(ctx, op, path, q)
	if err != nil {
		return nil, err
	}
	return normalize.Raw(op, resp.Body)
}
