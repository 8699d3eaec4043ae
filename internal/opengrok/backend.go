package opengrok

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/LeeChunJun/OpenGrokMCP/internal/config"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/normalize"
	"github.com/LeeChunJun/OpenGrokMCP/internal/transport"
)

// Backend is the capability set every mode provides.
type Backend interface {
	Mode() config.Mode
	Search(ctx context.Context, q SearchQuery) (*normalize.SearchResult, error)
	// FileContent fetches path as given. A missing file is an
	// UpstreamError with StatusCode 404.
	FileContent(ctx context.Context, path string) (string, error)
	Projects(ctx context.Context) ([]normalize.Project, error)
	Ping(ctx context.Context) error
}

// RESTBackend is the additional capability set of the REST API.
type RESTBackend interface {
	Backend

	Annotation(ctx context.Context, path string) ([]normalize.AnnotationLine, error)
	History(ctx context.Context, path string, start, maxEntries int) (*normalize.History, error)
	DirectoryListing(ctx context.Context, path string) ([]normalize.DirectoryEntry, error)
	FileDefinitions(ctx context.Context, path string) ([]normalize.Definition, error)
	FileGenre(ctx context.Context, path string) (string, error)
	IndexedProjects(ctx context.Context) ([]string, error)
	ProjectRepositories(ctx context.Context, project string) ([]string, error)
	ProjectRepositoryTypes(ctx context.Context, project string) ([]string, error)
	ProjectIndexedFiles(ctx context.Context, project string) ([]string, error)
	LastIndexTime(ctx context.Context) (string, error)
	Version(ctx context.Context) (string, error)
	Suggestions(ctx context.Context, q SuggestQuery) (*normalize.Suggestions, error)
	SuggestConfig(ctx context.Context) (json.RawMessage, error)
	Groups(ctx context.Context) ([]string, error)
	Messages(ctx context.Context, tag string) ([]normalize.Message, error)
	Configuration(ctx context.Context, field string) (json.RawMessage, error)
	RepositoryProperty(ctx context.Context, field string, repositories []string) (json.RawMessage, error)

	ReloadAuthorization(ctx context.Context) (*AsyncOperation, error)
	MarkProjectIndexed(ctx context.Context, project string) (*AsyncOperation, error)
	Status(ctx context.Context, id string) (*OperationStatus, error)
}

// NewBackend selects the backend for the adapter's mode.
func NewBackend(a *transport.Adapter) Backend {
	if a.Mode() == config.ModeHTML {
		return &htmlBackend{t: a}
	}
	return &restBackend{t: a}
}

// classify maps a response status to the error taxonomy. It runs before
// any body parsing. 200, 201, 202 and 204 are success.
func classify(op string, resp *transport.Response) error {
	if resp.LoginRedirect {
		return errors.NewAuthenticationExpired(op, resp.StatusCode).
			WithDetails(map[string]string{"reason": "redirected to a login page outside the server origin"})
	}
	if resp.LoginPage {
		return errors.NewAuthenticationExpired(op, resp.StatusCode).
			WithDetails(map[string]string{"reason": "REST endpoint answered with an HTML page", "url": resp.URL.Path})
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthenticationExpired(op, resp.StatusCode)
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return errors.NewUpstreamError(op, resp.StatusCode, string(resp.Body))
	}
}

// isNotFound reports an UpstreamError carrying 404.
func isNotFound(err error) bool {
	var e *errors.Error
	return errors.As(err, &e) && e.Code == errors.UpstreamError && e.StatusCode == http.StatusNotFound
}
