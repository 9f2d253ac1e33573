package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"miren.dev/jira-release/internal/jiraapi"
	"miren.dev/jira-release/internal/release"
)

//go:embed templates/*.html
var templateFS embed.FS

// Raw HTML in descriptions is not rendered.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

type Renderer struct {
	templates  *template.Template
	projectKey string
	version    string
}

func NewRenderer(projectKey, version string) (*Renderer, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Renderer{
		templates:  tmpl,
		projectKey: strings.ToUpper(projectKey),
		version:    version,
	}, nil
}

type issueGroup struct {
	Type   string
	Issues []*jiraapi.Issue
}

type failureView struct {
	Key     string
	Message string
}

type releasePageData struct {
	ProjectKey string
	Version    string
	Groups     []issueGroup
	Missing    []string
	Failures   []failureView
	TokenCount int
	IssueCount int
}

// RenderReleaseNotes writes an HTML page listing the issues of res grouped by
// issue type, in first-mention order, followed by the keys that could not be
// resolved.
func (r *Renderer) RenderReleaseNotes(w io.Writer, res *release.Result) error {
	data := releasePageData{
		ProjectKey: r.projectKey,
		Version:    r.version,
		Groups:     groupByType(res.Issues),
		Missing:    res.Missing,
		TokenCount: len(res.Tokens),
		IssueCount: len(res.Issues),
	}
	for _, f := range res.Failures {
		data.Failures = append(data.Failures, failureView{Key: f.Key, Message: f.Err.Error()})
	}
	return r.templates.ExecuteTemplate(w, "release.html", data)
}

func groupByType(issues []*jiraapi.Issue) []issueGroup {
	var groups []issueGroup
	index := make(map[string]int)
	for _, issue := range issues {
		typ := issue.Type
		if typ == "" {
			typ = "Other"
		}
		i, ok := index[typ]
		if !ok {
			i = len(groups)
			index[typ] = i
			groups = append(groups, issueGroup{Type: typ})
		}
		groups[i].Issues = append(groups[i].Issues, issue)
	}
	return groups
}

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}
