package mcp

import (
	"context"
	"time"

	"github.com/LeeChunJun/OpenGrokMCP/internal/envelope"
	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
	"github.com/LeeChunJun/OpenGrokMCP/internal/opengrok"
)

const (
	defaultWaitTimeout = 60 * time.Second
	maxWaitTimeout     = 10 * time.Minute
)

// toolSearch implements the search tool
func (s *Server) toolSearch(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var q opengrok.SearchQuery
	var err error
	fields := []struct {
		name string
		dst  *string
	}{
		{"full", &q.Full}, {"defs", &q.Defs}, {"refs", &q.Refs},
		{"path", &q.Path}, {"hist", &q.Hist}, {"type", &q.Type},
	}
	for _, f := range fields {
		if *f.dst, err = stringArg(args, f.name); err != nil {
			return nil, err
		}
	}
	if q.Projects, err = projectsArg(args); err != nil {
		return nil, err
	}
	if q.MaxResults, err = intArg(args, "maxResults", 0); err != nil {
		return nil, err
	}
	if q.Start, err = intArg(args, "start", 0); err != nil {
		return nil, err
	}

	res, err := s.client.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	// start and the total count documents, not lines.
	b := envelope.New().Data(res)
	next := q.Start + res.Documents
	if res.Documents > 0 && res.TotalCount > next {
		b.WithTruncation(true, res.Documents, res.TotalCount, "max-results").
			Suggest("search", nextPage(args, next), "next page")
	}
	if len(res.Hits) > 0 {
		first := res.Hits[0]
		b.Suggest("getFile", map[string]interface{}{"path": first.FilePath}, "open the first hit")
	}
	return b.Build(), nil
}

// nextPage copies the search arguments with start moved to next.
func nextPage(args map[string]interface{}, next int) map[string]interface{} {
	out := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	out["start"] = next
	return out
}

func (s *Server) crossRefArgs(args map[string]interface{}) (string, []string, error) {
	symbol, err := requiredString(args, "symbol")
	if err != nil {
		return "", nil, err
	}
	projects, err := projectsArg(args)
	if err != nil {
		return "", nil, err
	}
	return symbol, projects, nil
}

// toolFindDefinitions implements the findDefinitions tool
func (s *Server) toolFindDefinitions(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	symbol, projects, err := s.crossRefArgs(args)
	if err != nil {
		return nil, err
	}
	refs, err := s.client.FindDefinitions(ctx, symbol, projects)
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(refs)
	if len(refs) == 0 {
		b.Suggest("search", map[string]interface{}{"full": symbol}, "no definitions found; try a full-text search")
	}
	return b.Build(), nil
}

// toolFindReferences implements the findReferences tool
func (s *Server) toolFindReferences(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	symbol, projects, err := s.crossRefArgs(args)
	if err != nil {
		return nil, err
	}
	refs, err := s.client.FindReferences(ctx, symbol, projects)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(refs).Build(), nil
}

// toolGetFile implements the getFile tool. The file text is returned as is.
func (s *Server) toolGetFile(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	project, err := stringArg(args, "project")
	if err != nil {
		return nil, err
	}
	fc, err := s.client.GetFile(ctx, path, project)
	if err != nil {
		return nil, err
	}
	return fc.Content, nil
}

// toolListProjects implements the listProjects tool
func (s *Server) toolListProjects(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	projects, err := s.client.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(projects).Build(), nil
}

// toolPing implements the ping tool. It never fails.
func (s *Server) toolPing(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	ok := s.client.Ping(ctx)
	b := envelope.New().Data(map[string]interface{}{"reachable": ok})
	if !ok {
		b.Suggest("reloadCredentials", nil, "the server may have rejected the session")
	}
	return b.Build(), nil
}

// toolReloadCredentials implements the reloadCredentials tool. The server
// holds the credential lock exclusively while it runs.
func (s *Server) toolReloadCredentials(_ context.Context, args map[string]interface{}) (interface{}, error) {
	cookies, err := stringArg(args, "cookies")
	if err != nil {
		return nil, err
	}
	n, err := s.client.ReloadCredentials(cookies)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(map[string]interface{}{"cookies": n}), nil
}

// toolGetAnnotation implements the getAnnotation tool
func (s *Server) toolGetAnnotation(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	lines, err := s.client.GetAnnotation(ctx, path)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(lines).Build(), nil
}

// toolGetHistory implements the getHistory tool
func (s *Server) toolGetHistory(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	start, err := intArg(args, "start", 0)
	if err != nil {
		return nil, err
	}
	maxEntries, err := intArg(args, "maxEntries", 0)
	if err != nil {
		return nil, err
	}

	h, err := s.client.GetHistory(ctx, path, start, maxEntries)
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(h)
	shown := len(h.Entries)
	if total := int(h.Total); total > start+shown {
		b.WithTruncation(true, shown, total, "max-entries")
	}
	return b.Build(), nil
}

// toolGetDirectoryListing implements the getDirectoryListing tool
func (s *Server) toolGetDirectoryListing(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	entries, err := s.client.GetDirectoryListing(ctx, path)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(entries).Build(), nil
}

// toolGetFileDefinitions implements the getFileDefinitions tool
func (s *Server) toolGetFileDefinitions(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	defs, err := s.client.GetFileDefinitions(ctx, path)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(defs).Build(), nil
}

// toolGetFileGenre implements the getFileGenre tool
func (s *Server) toolGetFileGenre(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	path, err := requiredString(args, "path")
	if err != nil {
		return nil, err
	}
	return s.client.GetFileGenre(ctx, path)
}

// toolGetIndexedProjects implements the getIndexedProjects tool
func (s *Server) toolGetIndexedProjects(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return listResult(s.client.GetIndexedProjects(ctx))
}

func (s *Server) projectTool(ctx context.Context, args map[string]interface{}, fn func(context.Context, string) ([]string, error)) (interface{}, error) {
	project, err := requiredString(args, "project")
	if err != nil {
		return nil, err
	}
	return listResult(fn(ctx, project))
}

// toolGetProjectRepositories implements the getProjectRepositories tool
func (s *Server) toolGetProjectRepositories(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return s.projectTool(ctx, args, s.client.GetProjectRepositories)
}

// toolGetProjectRepositoryTypes implements the getProjectRepositoryTypes tool
func (s *Server) toolGetProjectRepositoryTypes(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return s.projectTool(ctx, args, s.client.GetProjectRepositoryTypes)
}

// toolGetProjectIndexedFiles implements the getProjectIndexedFiles tool
func (s *Server) toolGetProjectIndexedFiles(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return s.projectTool(ctx, args, s.client.GetProjectIndexedFiles)
}

// toolGetLastIndexTime implements the getLastIndexTime tool
func (s *Server) toolGetLastIndexTime(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return s.client.GetLastIndexTime(ctx)
}

// toolGetVersion implements the getVersion tool
func (s *Server) toolGetVersion(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return s.client.GetVersion(ctx)
}

// toolGetSuggestions implements the getSuggestions tool
func (s *Server) toolGetSuggestions(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var q opengrok.SuggestQuery
	var err error
	if q.Text, err = requiredString(args, "query"); err != nil {
		return nil, err
	}
	if q.Field, err = stringArg(args, "field"); err != nil {
		return nil, err
	}
	if q.Caret, err = intArg(args, "caret", 0); err != nil {
		return nil, err
	}
	if q.Projects, err = projectsArg(args); err != nil {
		return nil, err
	}

	sug, err := s.client.GetSuggestions(ctx, q)
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(sug)
	if sug.PartialResult {
		b.WarningWithCode("PARTIAL_RESULT", "the suggester timed out and returned partial results")
	}
	return b.Build(), nil
}

// toolGetSuggestConfig implements the getSuggestConfig tool
func (s *Server) toolGetSuggestConfig(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	cfg, err := s.client.GetSuggestConfig(ctx)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(cfg).Build(), nil
}

// toolListGroups implements the listGroups tool
func (s *Server) toolListGroups(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return listResult(s.client.ListGroups(ctx))
}

// toolGetMessages implements the getMessages tool
func (s *Server) toolGetMessages(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	tag, err := stringArg(args, "tag")
	if err != nil {
		return nil, err
	}
	msgs, err := s.client.GetMessages(ctx, tag)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(msgs).Build(), nil
}

// toolGetConfiguration implements the getConfiguration tool
func (s *Server) toolGetConfiguration(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	field, err := stringArg(args, "field")
	if err != nil {
		return nil, err
	}
	raw, err := s.client.GetConfiguration(ctx, field)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(raw).Build(), nil
}

// toolGetRepositoryProperty implements the getRepositoryProperty tool
func (s *Server) toolGetRepositoryProperty(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	field, err := requiredString(args, "field")
	if err != nil {
		return nil, err
	}
	repos, err := stringListArg(args, "repositories")
	if err != nil {
		return nil, err
	}
	raw, err := s.client.GetRepositoryProperty(ctx, field, repos)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(raw).Build(), nil
}

func asyncResult(op *opengrok.AsyncOperation, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(op)
	if !op.Done {
		b.Suggest("waitForStatus", map[string]interface{}{"statusId": op.StatusID}, "the server accepted the request for background processing")
	}
	return b.Build(), nil
}

// toolReloadAuthorization implements the reloadAuthorization tool
func (s *Server) toolReloadAuthorization(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return asyncResult(s.client.ReloadAuthorization(ctx))
}

// toolMarkProjectIndexed implements the markProjectIndexed tool
func (s *Server) toolMarkProjectIndexed(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	project, err := requiredString(args, "project")
	if err != nil {
		return nil, err
	}
	return asyncResult(s.client.MarkProjectIndexed(ctx, project))
}

// toolGetStatus implements the getStatus tool
func (s *Server) toolGetStatus(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := requiredString(args, "statusId")
	if err != nil {
		return nil, err
	}
	st, err := s.client.GetStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return envelope.Operational(st), nil
}

// toolWaitForStatus implements the waitForStatus tool
func (s *Server) toolWaitForStatus(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := requiredString(args, "statusId")
	if err != nil {
		return nil, err
	}
	secs, err := intArg(args, "timeoutSeconds", 0)
	if err != nil {
		return nil, err
	}
	timeout := defaultWaitTimeout
	if secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	if timeout > maxWaitTimeout {
		return nil, errors.NewInvalidArgument("timeoutSeconds", "must be at most 600")
	}

	// The credential read lock is taken per poll so a reload can run
	// between polls.
	st, err := s.client.WaitForStatusWith(ctx, id, timeout, func(ctx context.Context, id string) (*opengrok.OperationStatus, error) {
		s.credMu.RLock()
		defer s.credMu.RUnlock()
		return s.client.GetStatus(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return envelope.Operational(st), nil
}

func listResult(items []string, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return envelope.New().Data(items).Build(), nil
}
