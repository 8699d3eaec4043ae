package opengrok

import (
	"context"
	"net/http"
	"net/url"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/normalize"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
)

// htmlBackend scrapes the OpenGrok web interface.
type htmlBackend struct {
	t *transport.Adapter
}

func (b *htmlBackend) Mode() config.Mode { return config.ModeHTML }

func (b *htmlBackend) get(ctx context.Context, op, path string, q url.Values) (*transport.Response, error) {
	resp, err := b.t.Do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	if err := classify(op, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *htmlBackend) Search(ctx context.Context, q SearchQuery) (*normalize.SearchResult, error) {
	resp, err := b.get(ctx, "search", "/search", htmlKeys.encode(q))
	if err != nil {
		return nil, err
	}
	return normalize.HTMLSearch(resp.Body)
}

func (b *htmlBackend) FileContent(ctx context.Context, path string) (string, error) {
	resp, err := b.get(ctx, "getFile", "/xref"+transport.EscapePath(sourcePath(path)), nil)
	if err != nil {
		return "", err
	}
	return normalize.HTMLFileContent(resp.Body), nil
}

func (b *htmlBackend) Projects(ctx context.Context) ([]normalize.Project, error) {
	resp, err := b.get(ctx, "listProjects", "/", nil)
	if err != nil {
		return nil, err
	}
	return normalize.HTMLProjects(resp.Body), nil
}

func (b *htmlBackend) Ping(ctx context.Context) error {
	_, err := b.get(ctx, "ping", "/", nil)
	return err
}
