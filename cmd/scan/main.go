package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"miren.dev/jira-release/internal/cache"
	"miren.dev/jira-release/internal/gitlog"
	"miren.dev/jira-release/internal/issueref"
	"miren.dev/jira-release/internal/jiraapi"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var (
		projectID     string
		shapesFile    string
		gitDir        string
		releaseBranch string
		latestBranch  string
		unique        bool
		lookup        bool
		makeShapes    bool
	)
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.StringVar(&projectID, "project-id", "", "Jira project key")
	fs.StringVar(&shapesFile, "shapes", "", "YAML file with extra issue reference shapes")
	fs.StringVar(&gitDir, "git-dir", ".", "local git clone, used with -release-branch and -latest-branch")
	fs.StringVar(&releaseBranch, "release-branch", "", "read subjects of latest-branch not in this branch")
	fs.StringVar(&latestBranch, "latest-branch", "", "branch being released")
	fs.BoolVar(&unique, "unique", false, "print each key once")
	fs.BoolVar(&lookup, "lookup", false, "print the Jira summary of each key (needs JIRA_URL, JIRA_USERNAME, JIRA_PASSWORD)")
	fs.BoolVar(&makeShapes, "make-shapes", false, "print the built-in shapes as YAML and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if makeShapes {
		out, err := issueref.MarshalShapes(issueref.DefaultShapes())
		if err != nil {
			return fmt.Errorf("marshal shapes: %w", err)
		}
		_, err = stdout.Write(out)
		return err
	}

	if projectID == "" {
		return errors.New("-project-id is required")
	}
	projectID, err := issueref.NormalizeProjectID(projectID)
	if err != nil {
		return err
	}

	shapes := issueref.DefaultShapes()
	if shapesFile != "" {
		extra, err := issueref.LoadShapesFile(shapesFile)
		if err != nil {
			return err
		}
		shapes = append(shapes, extra...)
	}
	tokenizer, err := issueref.NewWithShapes(projectID, shapes)
	if err != nil {
		return fmt.Errorf("initialize tokenizer: %w", err)
	}

	ctx := context.Background()

	var logs string
	if releaseBranch != "" || latestBranch != "" {
		logs, err = gitlog.NewReader(gitDir).Subjects(ctx, releaseBranch, latestBranch)
	} else {
		var b []byte
		b, err = io.ReadAll(stdin)
		logs = string(b)
	}
	if err != nil {
		return fmt.Errorf("read logs: %w", err)
	}

	tokens := tokenizer.Parse(logs)
	if unique {
		tokens = dedupe(tokens)
	}
	slog.Info("scan complete", "project", tokenizer.ProjectID(), "tokens", len(tokens))

	if !lookup {
		for _, tok := range tokens {
			fmt.Fprintln(stdout, tok)
		}
		return nil
	}
	return printSummaries(ctx, stdout, tokens)
}

func printSummaries(ctx context.Context, w io.Writer, tokens []string) error {
	url := os.Getenv("JIRA_URL")
	if url == "" {
		return errors.New("JIRA_URL is required with -lookup")
	}
	client := jiraapi.NewClient(url, os.Getenv("JIRA_USERNAME"), os.Getenv("JIRA_PASSWORD"))
	issues := cache.New(client, cache.DefaultTTL)

	for _, tok := range tokens {
		issue, err := issues.FetchIssue(ctx, tok)
		switch {
		case err != nil:
			return fmt.Errorf("fetch %s: %w", tok, err)
		case issue == nil:
			fmt.Fprintf(w, "%s\t(not found)\n", tok)
		default:
			fmt.Fprintf(w, "%s\t%s\t%s\n", tok, issue.Status.Name, strings.TrimSpace(issue.Summary))
		}
	}
	slog.Info("lookup complete", "issues_fetched", issues.Len())
	return nil
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
