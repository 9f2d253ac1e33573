package jiraapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type IssueFetcher interface {
	FetchIssue(ctx context.Context, key string) (*Issue, error)
}

// VersionAssigner sets one release version as a fix version on issues,
// creating the version in the project the first time it is needed.
type VersionAssigner struct {
	client      *Client
	issues      IssueFetcher
	projectKey  string
	versionName string

	versionOnce sync.Once
	version     *Version
	versionErr  error
}

// NewVersionAssigner returns an assigner that looks issues up through issues,
// typically a cache in front of client.
func NewVersionAssigner(client *Client, issues IssueFetcher, projectKey, versionName string) *VersionAssigner {
	if issues == nil {
		issues = client
	}
	return &VersionAssigner{
		client:      client,
		issues:      issues,
		projectKey:  projectKey,
		versionName: versionName,
	}
}

// Lookup fetches an issue without modifying it. Returns nil, nil if the issue
// does not exist.
func (a *VersionAssigner) Lookup(ctx context.Context, key string) (*Issue, error) {
	issue, err := a.issues.FetchIssue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch issue %s: %w", key, err)
	}
	return issue, nil
}

// Assign adds the release version to the issue. Returns nil, nil if the issue
// does not exist.
func (a *VersionAssigner) Assign(ctx context.Context, key string) (*Issue, error) {
	issue, err := a.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		slog.Info("issue not found, skipping", "key", key)
		return nil, nil
	}

	if issue.HasFixVersion(a.versionName) {
		slog.Info("issue already has fix version", "key", key, "version", a.versionName)
		return issue, nil
	}

	version, err := a.resolveVersion(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.client.AddFixVersion(ctx, key, version.Name); err != nil {
		return nil, fmt.Errorf("add fix version to %s: %w", key, err)
	}

	slog.Info("applied fix version", "key", key, "version", version.Name)
	issue.FixVersions = append(issue.FixVersions, *version)
	return issue, nil
}

func (a *VersionAssigner) resolveVersion(ctx context.Context) (*Version, error) {
	a.versionOnce.Do(func() {
		a.version, a.versionErr = a.findOrCreateVersion(ctx)
	})
	return a.version, a.versionErr
}

func (a *VersionAssigner) findOrCreateVersion(ctx context.Context) (*Version, error) {
	versions, err := a.client.ListVersions(ctx, a.projectKey)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.Name == a.versionName {
			slog.Info("using existing version", "project", a.projectKey, "version", v.Name, "id", v.ID)
			return &v, nil
		}
	}

	v, err := a.client.CreateVersion(ctx, a.projectKey, a.versionName)
	if err != nil {
		return nil, err
	}
	slog.Info("created version", "project", a.projectKey, "version", v.Name, "id", v.ID)
	return v, nil
}
