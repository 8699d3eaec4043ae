package opengrok

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/normalize"
)

func required(param, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewInvalidArgument(param, "must not be empty")
	}
	return nil
}

// projects resolves the search scope: the given projects, or the default
// project when none are given. Every entry must be non-empty.
func (c *Client) projects(given []string) ([]string, error) {
	if len(given) == 0 {
		if c.defaultProject == "" {
			return nil, errors.NewInvalidArgument("project", "must not be empty")
		}
		return []string{c.defaultProject}, nil
	}
	out := make([]string, 0, len(given))
	for _, p := range given {
		if err := required("project", p); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out, nil
}

// Search runs a full-text, definition, reference, path or history search.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*normalize.SearchResult, error) {
	projects, err := c.projects(q.Projects)
	if err != nil {
		return nil, err
	}
	if q.empty() {
		return nil, errors.NewInvalidArgument("query", "one of full, defs, refs, path or hist is required")
	}
	if q.MaxResults < 0 || q.Start < 0 {
		return nil, errors.NewInvalidArgument("maxResults", "must not be negative")
	}
	q.Projects = projects
	return c.backend.Search(ctx, q)
}

// FindDefinitions returns where symbol is defined.
func (c *Client) FindDefinitions(ctx context.Context, symbol string, projects []string) ([]normalize.CrossReference, error) {
	return c.crossRefs(ctx, symbol, projects, normalize.KindDefinition)
}

// FindReferences returns where symbol is used.
func (c *Client) FindReferences(ctx context.Context, symbol string, projects []string) ([]normalize.CrossReference, error) {
	return c.crossRefs(ctx, symbol, projects, normalize.KindReference)
}

func (c *Client) crossRefs(ctx context.Context, symbol string, projects []string, kind normalize.RefKind) ([]normalize.CrossReference, error) {
	if err := required("symbol", symbol); err != nil {
		return nil, err
	}
	q := SearchQuery{Projects: projects}
	if kind == normalize.KindDefinition {
		q.Defs = symbol
	} else {
		q.Refs = symbol
	}
	res, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return normalize.ToCrossReferences(symbol, kind, res.Hits), nil
}

// GetFile fetches a file's text. The first request uses path as given;
// on 404 with a project supplied it retries once with the project segment
// prepended. No other retries happen.
func (c *Client) GetFile(ctx context.Context, path, project string) (*normalize.FileContent, error) {
	if err := required("path", path); err != nil {
		return nil, err
	}
	project = strings.TrimSpace(project)

	first := sourcePath(path)
	content, err := c.backend.FileContent(ctx, first)
	if err == nil {
		return &normalize.FileContent{Path: first, Content: content, Project: project}, nil
	}
	if !isNotFound(err) || project == "" {
		return nil, err
	}

	second := withProject(project, path)
	c.logger.Debug("Retrying file fetch with project prefix", "path", first, "project", project)
	content, err = c.backend.FileContent(ctx, second)
	if err != nil {
		return nil, err
	}
	return &normalize.FileContent{Path: second, Content: content, Project: project}, nil
}

// ListProjects lists the projects visible to the session.
func (c *Client) ListProjects(ctx context.Context) ([]normalize.Project, error) {
	return c.backend.Projects(ctx)
}

// Ping reports whether the server answers with a success status. It never
// returns an error.
func (c *Client) Ping(ctx context.Context) bool {
	if err := c.backend.Ping(ctx); err != nil {
		c.logger.Debug("Ping failed", "code", string(errors.CodeOf(err)), "error", err.Error())
		return false
	}
	return true
}

// GetAnnotation returns per-line blame for path.
func (c *Client) GetAnnotation(ctx context.Context, path string) ([]normalize.AnnotationLine, error) {
	rb, err := c.restFor("getAnnotation")
	if err != nil {
		return nil, err
	}
	if err := required("path", path); err != nil {
		return nil, err
	}
	return rb.Annotation(ctx, path)
}

// GetHistory returns a page of history entries for path.
func (c *Client) GetHistory(ctx context.Context, path string, start, maxEntries int) (*normalize.History, error) {
	rb, err := c.restFor("getHistory")
	if err != nil {
		return nil, err
	}
	if err := required("path", path); err != nil {
		return nil, err
	}
	if start < 0 || maxEntries < 0 {
		return nil, errors.NewInvalidArgument("start", "must not be negative")
	}
	return rb.History(ctx, path, start, maxEntries)
}

// GetDirectoryListing lists the entries of a directory.
func (c *Client) GetDirectoryListing(ctx context.Context, path string) ([]normalize.DirectoryEntry, error) {
	rb, err := c.restFor("getDirectoryListing")
	if err != nil {
		return nil, err
	}
	if err := required("path", path); err != nil {
		return nil, err
	}
	return rb.DirectoryListing(ctx, path)
}

// FileDefinitions pairs /file/defs tags with their cross-reference form.
type FileDefinitions struct {
	Path            string                     `json:"path"`
	Definitions     []normalize.Definition     `json:"definitions"`
	CrossReferences []normalize.CrossReference `json:"crossReferences"`
}

// GetFileDefinitions lists the symbols defined in path.
func (c *Client) GetFileDefinitions(ctx context.Context, path string) (*FileDefinitions, error) {
	rb, err := c.restFor("getFileDefinitions")
	if err != nil {
		return nil, err
	}
	if err := required("path", path); err != nil {
		return nil, err
	}
	defs, err := rb.FileDefinitions(ctx, path)
	if err != nil {
		return nil, err
	}
	p := sourcePath(path)
	return &FileDefinitions{
		Path:            p,
		Definitions:     defs,
		CrossReferences: normalize.DefinitionsToCrossReferences(p, defs),
	}, nil
}

// GetFileGenre returns the analyzer genre of path (PLAIN, XREFABLE, ...).
func (c *Client) GetFileGenre(ctx context.Context, path string) (string, error) {
	rb, err := c.restFor("getFileGenre")
	if err != nil {
		return "", err
	}
	if err := required("path", path); err != nil {
		return "", err
	}
	return rb.FileGenre(ctx, path)
}

// GetIndexedProjects lists projects that finished indexing.
func (c *Client) GetIndexedProjects(ctx context.Context) ([]string, error) {
	rb, err := c.restFor("getIndexedProjects")
	if err != nil {
		return nil, err
	}
	return rb.IndexedProjects(ctx)
}

// GetProjectRepositories lists the repository paths of project.
func (c *Client) GetProjectRepositories(ctx context.Context, project string) ([]string, error) {
	rb, err := c.restFor("getProjectRepositories")
	if err != nil {
		return nil, err
	}
	if err := required("project", project); err != nil {
		return nil, err
	}
	return rb.ProjectRepositories(ctx, project)
}

// GetProjectRepositoryTypes lists the SCM types used by project.
func (c *Client) GetProjectRepositoryTypes(ctx context.Context, project string) ([]string, error) {
	rb, err := c.restFor("getProjectRepositoryTypes")
	if err != nil {
		return nil, err
	}
	if err := required("project", project); err != nil {
		return nil, err
	}
	return rb.ProjectRepositoryTypes(ctx, project)
}

// GetProjectIndexedFiles lists the indexed files of project.
func (c *Client) GetProjectIndexedFiles(ctx context.Context, project string) ([]string, error) {
	rb, err := c.restFor("getProjectIndexedFiles")
	if err != nil {
		return nil, err
	}
	if err := required("project", project); err != nil {
		return nil, err
	}
	return rb.ProjectIndexedFiles(ctx, project)
}

// GetLastIndexTime returns when the index was last updated.
func (c *Client) GetLastIndexTime(ctx context.Context) (string, error) {
	rb, err := c.restFor("getLastIndexTime")
	if err != nil {
		return "", err
	}
	return rb.LastIndexTime(ctx)
}

// GetVersion returns the OpenGrok server version.
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	rb, err := c.restFor("getVersion")
	if err != nil {
		return "", err
	}
	return rb.Version(ctx)
}

// GetSuggestions returns completions for a partial query.
func (c *Client) GetSuggestions(ctx context.Context, q SuggestQuery) (*normalize.Suggestions, error) {
	rb, err := c.restFor("getSuggestions")
	if err != nil {
		return nil, err
	}
	if err := required("query", q.Text); err != nil {
		return nil, err
	}
	switch q.Field {
	case "", "full", "defs", "refs", "path", "hist", "type":
	default:
		return nil, errors.NewInvalidArgument("field", "must be one of full, defs, refs, path, hist, type")
	}
	if len(q.Projects) == 0 && c.defaultProject != "" {
		q.Projects = []string{c.defaultProject}
	}
	return rb.Suggestions(ctx, q)
}

// GetSuggestConfig returns the server's suggester configuration.
func (c *Client) GetSuggestConfig(ctx context.Context) (json.RawMessage, error) {
	rb, err := c.restFor("getSuggestConfig")
	if err != nil {
		return nil, err
	}
	return rb.SuggestConfig(ctx)
}

// ListGroups lists project groups.
func (c *Client) ListGroups(ctx context.Context) ([]string, error) {
	rb, err := c.restFor("listGroups")
	if err != nil {
		return nil, err
	}
	return rb.Groups(ctx)
}

// GetMessages returns server messages, optionally filtered by tag.
func (c *Client) GetMessages(ctx context.Context, tag string) ([]normalize.Message, error) {
	rb, err := c.restFor("getMessages")
	if err != nil {
		return nil, err
	}
	return rb.Messages(ctx, strings.TrimSpace(tag))
}

// GetConfiguration returns the whole server configuration or one field.
func (c *Client) GetConfiguration(ctx context.Context, field string) (json.RawMessage, error) {
	rb, err := c.restFor("getConfiguration")
	if err != nil {
		return nil, err
	}
	return rb.Configuration(ctx, strings.TrimSpace(field))
}

// GetRepositoryProperty returns one property of the given repositories.
func (c *Client) GetRepositoryProperty(ctx context.Context, field string, repositories []string) (json.RawMessage, error) {
	rb, err := c.restFor("getRepositoryProperty")
	if err != nil {
		return nil, err
	}
	if err := required("field", field); err != nil {
		return nil, err
	}
	if len(repositories) == 0 {
		return nil, errors.NewInvalidArgument("repositories", "at least one repository is required")
	}
	return rb.RepositoryProperty(ctx, field, repositories)
}

// ReloadAuthorization asks the server to reload its authorization
// framework.
func (c *Client) ReloadAuthorization(ctx context.Context) (*AsyncOperation, error) {
	rb, err := c.restFor("reloadAuthorization")
	if err != nil {
		return nil, err
	}
	return rb.ReloadAuthorization(ctx)
}

// MarkProjectIndexed flags project as indexed.
func (c *Client) MarkProjectIndexed(ctx context.Context, project string) (*AsyncOperation, error) {
	rb, err := c.restFor("markProjectIndexed")
	if err != nil {
		return nil, err
	}
	if err := required("project", project); err != nil {
		return nil, err
	}
	return rb.MarkProjectIndexed(ctx, project)
}

// GetStatus checks an accepted operation once.
func (c *Client) GetStatus(ctx context.Context, id string) (*OperationStatus, error) {
	rb, err := c.restFor("getStatus")
	if err != nil {
		return nil, err
	}
	if err := validateStatusID(id); err != nil {
		return nil, err
	}
	return rb.Status(ctx, id)
}
