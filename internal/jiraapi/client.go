package jiraapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiPrefix = "/rest/api/2"

const issueFields = "summary,description,status,issuetype,fixVersions"

// ErrAuthentication is returned when Jira rejects the credentials.
var ErrAuthentication = errors.New("jira authentication failed")

// APIError is a non-2xx response from Jira.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("jira API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient returns a client for the Jira instance at baseURL, e.g.
// "https://example.atlassian.net".
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

type issueJSON struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Key string `json:"key"`
			} `json:"statusCategory"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		FixVersions []Version `json:"fixVersions"`
	} `json:"fields"`
}

// ParseIdentifier splits "FOO-42" into ("FOO", 42).
func ParseIdentifier(identifier string) (projectKey string, number int, err error) {
	i := strings.LastIndex(identifier, "-")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid identifier format: %s", identifier)
	}
	n, err := strconv.Atoi(identifier[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid issue number in %s: %w", identifier, err)
	}
	return identifier[:i], n, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthentication
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBytes)
	}

	if out == nil || len(respBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var er errorResponse
	if json.Unmarshal(body, &er) != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			apiErr.Messages = []string{s}
		}
		return apiErr
	}
	apiErr.Messages = append(apiErr.Messages, er.ErrorMessages...)
	for field, msg := range er.Errors {
		apiErr.Messages = append(apiErr.Messages, field+": "+msg)
	}
	return apiErr
}

// FetchIssue retrieves an issue by its key (e.g. "FOO-42").
// Returns nil, nil if the issue does not exist.
func (c *Client) FetchIssue(ctx context.Context, key string) (*Issue, error) {
	if _, _, err := ParseIdentifier(key); err != nil {
		return nil, err
	}

	var j issueJSON
	path := "/issue/" + url.PathEscape(key) + "?fields=" + issueFields
	if err := c.do(ctx, http.MethodGet, path, nil, &j); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return c.toIssue(&j), nil
}

// ListVersions returns every version of a project.
func (c *Client) ListVersions(ctx context.Context, projectKey string) ([]Version, error) {
	var versions []Version
	if err := c.do(ctx, http.MethodGet, "/project/"+url.PathEscape(projectKey)+"/versions", nil, &versions); err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", projectKey, err)
	}
	return versions, nil
}

// CreateVersion creates an unreleased version in a project.
func (c *Client) CreateVersion(ctx context.Context, projectKey, name string) (*Version, error) {
	reqBody := map[string]any{
		"name":     name,
		"project":  projectKey,
		"released": false,
	}
	var v Version
	if err := c.do(ctx, http.MethodPost, "/version", reqBody, &v); err != nil {
		return nil, fmt.Errorf("create version %s: %w", name, err)
	}
	return &v, nil
}

// AddFixVersion appends a version to the fixVersions of an issue.
func (c *Client) AddFixVersion(ctx context.Context, key, versionName string) error {
	reqBody := map[string]any{
		"update": map[string]any{
			"fixVersions": []map[string]any{
				{"add": map[string]string{"name": versionName}},
			},
		},
	}
	return c.do(ctx, http.MethodPut, "/issue/"+url.PathEscape(key), reqBody, nil)
}

func (c *Client) toIssue(j *issueJSON) *Issue {
	return &Issue{
		ID:          j.ID,
		Key:         j.Key,
		Summary:     j.Fields.Summary,
		Description: j.Fields.Description,
		Status:      Status{Name: j.Fields.Status.Name, Category: j.Fields.Status.StatusCategory.Key},
		Type:        j.Fields.IssueType.Name,
		FixVersions: j.Fields.FixVersions,
		URL:         c.baseURL + "/browse/" + j.Key,
	}
}
