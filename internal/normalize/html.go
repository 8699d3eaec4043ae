package normalize

import (
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/LeeChunJun/OpenGrokMCP/internal/errors"
)

// NoContent is returned by HTMLFileContent when the page holds no code
// block, which is how OpenGrok renders empty and binary files.
const NoContent = "[no source content available]"

// Markup shape expected from the OpenGrok web interface:
//
//	search:   <a class="s" href="{ctx}/xref/{project}/{path}#{line}">{snippet}</a>
//	xref:     <pre ...>{code}</pre>
//	projects: <select id="project"><option value="{name}">{label}</option></select>
var (
	anchorRe     = regexp.MustCompile(`(?is)<a\b([^>]*)>(.*?)</a>`)
	classAttrRe  = regexp.MustCompile(`(?is)\bclass\s*=\s*["']([^"']*)["']`)
	hrefAttrRe   = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']*)["']`)
	xrefHrefRe   = regexp.MustCompile(`/xref(/[^#?"']+)#(\d+)`)
	totalRe      = regexp.MustCompile(`(?is)results\s*<b>\s*\d+\s*</b>\s*(?:-|&ndash;|–)\s*<b>\s*\d+\s*</b>\s*of\s*<b>\s*(\d+)\s*</b>`)
	preRe        = regexp.MustCompile(`(?is)<pre\b[^>]*>(.*?)</pre>`)
	lineAnchorRe = regexp.MustCompile(`(?is)<a\b[^>]*\bclass\s*=\s*["'](?:l|hl)["'][^>]*>\s*\d*\s*</a>`)
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	projectSelRe = regexp.MustCompile(`(?is)<select\b[^>]*\b(?:id|name)\s*=\s*["']project["'][^>]*>(.*?)</select>`)
	optionRe     = regexp.MustCompile(`(?is)<option\b([^>]*)>(.*?)</option>`)
	valueAttrRe  = regexp.MustCompile(`(?is)\bvalue\s*=\s*["']([^"']*)["']`)
)

// resultClass is the CSS class of search result anchors.
const resultClass = "s"

// HTMLSearch extracts hits from a search results page. Hits are
// deduplicated on (path, line). A page with result anchors but no
// recognizable hit is reported as MalformedUpstreamResponse; a page with
// no result anchors at all is an empty result.
func HTMLSearch(page []byte) (*SearchResult, error) {
	res := &SearchResult{Hits: []SearchHit{}}

	for _, m := range anchorRe.FindAllSubmatch(page, -1) {
		attrs := m[1]
		if !hasClass(attrs, resultClass) {
			continue
		}
		res.AnchorCount++

		href := hrefAttrRe.FindSubmatch(attrs)
		if href == nil {
			continue
		}
		x := xrefHrefRe.FindStringSubmatch(html.UnescapeString(string(href[1])))
		if x == nil {
			continue
		}
		path, err := url.PathUnescape(x[1])
		if err != nil {
			path = x[1]
		}
		res.Hits = append(res.Hits, SearchHit{
			FilePath:    path,
			LineNumber:  ParseLine(x[2]),
			Snippet:     string(m[2]),
			ProjectName: ProjectOf(path),
		})
	}

	res.Hits = dedupe(res.Hits)
	res.Documents = countDocuments(res.Hits)
	if t := totalRe.FindSubmatch(page); t != nil {
		res.TotalCount, _ = strconv.Atoi(string(t[1]))
	}

	if len(res.Hits) == 0 && res.AnchorCount > 0 {
		return nil, errors.NewMalformedResponse("search",
			"result anchors present but none matched the expected xref link shape", nil).
			WithDetails(map[string]int{"anchorCount": res.AnchorCount})
	}
	return res, nil
}

// HTMLFileContent extracts the source text of an xref page: the first
// <pre> block with line-number anchors and tags removed and the &lt;
// &gt; &amp; escapes reversed in that order. It returns NoContent when
// the page has no <pre> block.
func HTMLFileContent(page []byte) string {
	m := preRe.FindSubmatch(page)
	if m == nil {
		return NoContent
	}
	s := lineAnchorRe.ReplaceAllString(string(m[1]), "")
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// HTMLProjects extracts the project list from the search page's project
// selector. When no selector is found every option on the page is
// scanned. Options with a blank value are dropped; duplicates keep the
// first label.
func HTMLProjects(page []byte) []Project {
	scope := page
	if sel := projectSelRe.FindSubmatch(page); sel != nil {
		scope = sel[1]
	}

	seen := make(map[string]struct{})
	out := []Project{}
	for _, m := range optionRe.FindAllSubmatch(scope, -1) {
		label := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(string(m[2]), "")))
		name := label
		if v := valueAttrRe.FindSubmatch(m[1]); v != nil {
			name = strings.TrimSpace(html.UnescapeString(string(v[1])))
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Project{Name: name, Label: label})
	}
	return out
}

func hasClass(attrs []byte, class string) bool {
	m := classAttrRe.FindSubmatch(attrs)
	if m == nil {
		return false
	}
	for _, c := range strings.Fields(string(m[1])) {
		if c == class {
			return true
		}
	}
	return false
}
