package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"miren.dev/jira-release/internal/cache"
	"miren.dev/jira-release/internal/gitlog"
	"miren.dev/jira-release/internal/issueref"
	"miren.dev/jira-release/internal/jiraapi"
	"miren.dev/jira-release/internal/release"
	"miren.dev/jira-release/internal/report"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type params struct {
	releaseBranch string
	latestBranch  string
	url           string
	projectID     string
	versionName   string
	username      string
	password      string
	gitDir        string
	shapesFile    string
	reportFile    string
	apply         bool
}

func parseParams(args []string, getenv func(string) string) (*params, error) {
	p := &params{}
	fs := flag.NewFlagSet("jira-release", flag.ContinueOnError)
	fs.StringVar(&p.releaseBranch, "release-branch", "master", "branch the release will be merged into")
	fs.StringVar(&p.latestBranch, "latest-branch", "develop", "branch being released")
	fs.StringVar(&p.url, "url", getenv("JIRA_URL"), "Jira root URL (falls back to JIRA_URL)")
	fs.StringVar(&p.projectID, "project-id", "", "Jira project key, or any issue key of the project")
	fs.StringVar(&p.versionName, "version-name", "", "name of the version to create and assign")
	fs.StringVar(&p.username, "username", getenv("JIRA_USERNAME"), "Jira username (falls back to JIRA_USERNAME)")
	fs.StringVar(&p.password, "password", getenv("JIRA_PASSWORD"), "Jira password or API token (falls back to JIRA_PASSWORD)")
	fs.StringVar(&p.gitDir, "git-dir", ".", "local git clone to read commit subjects from")
	fs.StringVar(&p.shapesFile, "shapes", "", "YAML file with extra issue reference shapes")
	fs.StringVar(&p.reportFile, "report", "", "write HTML release notes to this file")
	fs.BoolVar(&p.apply, "apply", false, "actually update Jira (default is dry-run)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	required := []struct {
		name, value string
	}{
		{"url", p.url},
		{"project-id", p.projectID},
		{"version-name", p.versionName},
		{"username", p.username},
		{"password", p.password},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("-%s is required", r.name)
		}
	}
	// An issue key such as FOO-12 names its project.
	projectID, err := issueref.NormalizeProjectID(p.projectID)
	if err != nil {
		return nil, err
	}
	p.projectID = projectID
	return p, nil
}

func run() error {
	p, err := parseParams(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shapes := issueref.DefaultShapes()
	if p.shapesFile != "" {
		extra, err := issueref.LoadShapesFile(p.shapesFile)
		if err != nil {
			return err
		}
		shapes = append(shapes, extra...)
	}

	tokenizer, err := issueref.NewWithShapes(p.projectID, shapes)
	if err != nil {
		return fmt.Errorf("initialize tokenizer: %w", err)
	}

	client := jiraapi.NewClient(p.url, p.username, p.password)
	issues := cache.New(client, cache.DefaultTTL)

	runner := &release.Runner{
		Logs:      gitlog.NewReader(p.gitDir),
		Tokenizer: tokenizer,
		Assigner:  jiraapi.NewVersionAssigner(client, issues, p.projectID, p.versionName),
		DryRun:    !p.apply,
	}

	slog.Info("starting release",
		"project", p.projectID,
		"version", p.versionName,
		"range", p.releaseBranch+".."+p.latestBranch,
		"apply", p.apply,
	)

	res, err := runner.Run(ctx, p.releaseBranch, p.latestBranch)
	if err != nil {
		return err
	}

	if p.reportFile != "" {
		if err := writeReport(p, res); err != nil {
			return err
		}
	}

	if !p.apply {
		fmt.Printf("dry-run: would add fix version %s to:\n", p.versionName)
		for _, issue := range res.Issues {
			fmt.Printf("  %s  %s\n", issue.Key, issue.Summary)
		}
		fmt.Printf("\nre-run with -apply to update these issues\n")
	}

	for _, key := range res.Missing {
		fmt.Fprintf(os.Stderr, "not found: %s\n", key)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", f.Key, f.Err)
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d issues could not be updated", len(res.Missing)+len(res.Failures), len(res.Keys))
	}
	return nil
}

func writeReport(p *params, res *release.Result) error {
	renderer, err := report.NewRenderer(p.projectID, p.versionName)
	if err != nil {
		return fmt.Errorf("initialize renderer: %w", err)
	}

	f, err := os.Create(p.reportFile)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := renderer.RenderReleaseNotes(f, res); err != nil {
		f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("wrote release notes", "path", p.reportFile)
	return nil
}
