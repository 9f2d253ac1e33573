// Package issueref extracts Jira issue keys from commit subjects.
//
// A Tokenizer holds one Pattern per supported shape, for example
// "[FOO-1 & FOO-2] subject" or "FOO-1, FOO-2 subject". Each line is matched
// against every Pattern and the Pattern finding the most keys wins; on a tie
// the earlier shape wins.
package issueref

import (
	"fmt"
	"regexp"
	"strings"
)

type Tokenizer struct {
	projectID string
	patterns  []*Pattern
}

// New builds a Tokenizer for projectID using DefaultShapes.
func New(projectID string) (*Tokenizer, error) {
	return NewWithShapes(projectID, DefaultShapes())
}

// NewWithShapes builds a Tokenizer whose patterns follow the order of shapes.
// The first shape that fails to compile is reported as a *PatternBuildError.
func NewWithShapes(projectID string, shapes []ShapeSpec) (*Tokenizer, error) {
	patterns := make([]*Pattern, 0, len(shapes))
	for _, shape := range shapes {
		p, err := NewPattern(projectID, shape)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return &Tokenizer{
		projectID: strings.ToUpper(projectID),
		patterns:  patterns,
	}, nil
}

// ProjectID returns the upper-cased project id used in tokens.
func (t *Tokenizer) ProjectID() string {
	return t.projectID
}

// Parse returns the tokens of every line of logs, in order. Lines that match
// no shape contribute nothing and duplicates are kept.
func (t *Tokenizer) Parse(logs string) []string {
	var tokens []string
	for _, line := range splitLines(logs) {
		tokens = append(tokens, t.ParseLine(line)...)
	}
	return tokens
}

// ParseLine returns the longest result any pattern finds on line.
func (t *Tokenizer) ParseLine(line string) []string {
	var best []string
	for _, p := range t.patterns {
		found, ok := p.Find(line)
		if ok && len(found) > len(best) {
			best = found
		}
	}
	return best
}

func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}

var projectIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateProjectID reports whether id looks like a Jira project key.
func ValidateProjectID(id string) error {
	if id == "" {
		return ErrEmptyProjectID
	}
	if !projectIDPattern.MatchString(id) {
		return fmt.Errorf("invalid project id %q: want letters, digits or underscores, starting with a letter", id)
	}
	return nil
}

var issueSuffix = regexp.MustCompile(`-[0-9]+$`)

// NormalizeProjectID accepts a project key or an issue key such as foo-12
// and returns the upper-cased project key.
func NormalizeProjectID(id string) (string, error) {
	id = strings.ToUpper(issueSuffix.ReplaceAllString(strings.TrimSpace(id), ""))
	if err := ValidateProjectID(id); err != nil {
		return "", err
	}
	return id, nil
}
