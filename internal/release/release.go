// Package release attaches a Jira version to every issue mentioned in the
// commits that a release is about to ship.
package release

import (
	"context"
	"fmt"
	"log/slog"

	"miren.dev/jira-release/internal/jiraapi"
)

type LogSource interface {
	Subjects(ctx context.Context, release, latest string) (string, error)
}

type Tokenizer interface {
	Parse(logs string) []string
}

type Assigner interface {
	Lookup(ctx context.Context, key string) (*jiraapi.Issue, error)
	Assign(ctx context.Context, key string) (*jiraapi.Issue, error)
}

type Runner struct {
	Logs      LogSource
	Tokenizer Tokenizer
	Assigner  Assigner
	// DryRun looks issues up without changing them.
	DryRun bool
}

// Failure is an issue key whose lookup or update returned an error.
type Failure struct {
	Key string
	Err error
}

type Result struct {
	// Tokens is every key found, in commit order, duplicates included.
	Tokens []string
	// Keys is Tokens without duplicates, first occurrence first.
	Keys []string
	// Issues holds the issues that exist, in Keys order.
	Issues []*jiraapi.Issue
	// Missing lists keys Jira does not know about.
	Missing  []string
	Failures []Failure
}

// OK reports whether every key resolved to an issue without error.
func (r *Result) OK() bool {
	return len(r.Missing) == 0 && len(r.Failures) == 0
}

// Run tokenizes the subjects of latest not yet in release and processes each
// distinct key. Per-issue errors are collected in the result; only a failure
// to read the log aborts the run.
func (r *Runner) Run(ctx context.Context, releaseBranch, latestBranch string) (*Result, error) {
	logs, err := r.Logs.Subjects(ctx, releaseBranch, latestBranch)
	if err != nil {
		return nil, fmt.Errorf("read commit subjects: %w", err)
	}

	res := &Result{Tokens: r.Tokenizer.Parse(logs)}
	res.Keys = unique(res.Tokens)
	slog.Info("tokenized commit subjects", "tokens", len(res.Tokens), "issues", len(res.Keys))

	for i, key := range res.Keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var issue *jiraapi.Issue
		if r.DryRun {
			issue, err = r.Assigner.Lookup(ctx, key)
		} else {
			issue, err = r.Assigner.Assign(ctx, key)
		}
		switch {
		case err != nil:
			slog.Error("process issue", "key", key, "progress", fmt.Sprintf("%d/%d", i+1, len(res.Keys)), "error", err)
			res.Failures = append(res.Failures, Failure{Key: key, Err: err})
		case issue == nil:
			res.Missing = append(res.Missing, key)
		default:
			res.Issues = append(res.Issues, issue)
		}
	}

	slog.Info("release run complete",
		"issues", len(res.Issues),
		"missing", len(res.Missing),
		"failed", len(res.Failures),
		"dry_run", r.DryRun,
	)
	return res, nil
}

func unique(tokens []string) []string {
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
