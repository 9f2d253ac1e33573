package issueref

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyProjectID is wrapped by the PatternBuildError returned for an
// empty project id.
var ErrEmptyProjectID = errors.New("project id is empty")

// PatternBuildError reports a shape whose expressions could not be compiled.
type PatternBuildError struct {
	Shape string
	Expr  string
	Err   error
}

func (e *PatternBuildError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("build pattern %q: %v", e.Shape, e.Err)
	}
	return fmt.Sprintf("build pattern %q from %q: %v", e.Shape, e.Expr, e.Err)
}

func (e *PatternBuildError) Unwrap() error {
	return e.Err
}

// Pattern recognizes one shape of issue reference at the start of a line.
type Pattern struct {
	shape     ShapeSpec
	projectID string
	prefix    string
	predicate *regexp.Regexp
	splitter  *regexp.Regexp
	ident     *regexp.Regexp
}

// NewPattern compiles shape for projectID. The project id and tag separator
// are matched literally; the remaining shape fields are regex fragments.
func NewPattern(projectID string, shape ShapeSpec) (*Pattern, error) {
	if projectID == "" {
		return nil, &PatternBuildError{Shape: shape.Name, Err: ErrEmptyProjectID}
	}

	predStr := predicateExpr(projectID, shape)
	pred, err := regexp.Compile(predStr)
	if err != nil {
		return nil, &PatternBuildError{Shape: shape.Name, Expr: predStr, Err: err}
	}
	// The splitter must agree with the case-insensitive predicate.
	spl, err := regexp.Compile(`(?i)` + shape.MultiSeparator)
	if err != nil {
		return nil, &PatternBuildError{Shape: shape.Name, Expr: shape.MultiSeparator, Err: err}
	}
	identStr := `(?i)` + identExpr(projectID, shape.TagSeparator, `([0-9]+)`)
	ident, err := regexp.Compile(identStr)
	if err != nil {
		return nil, &PatternBuildError{Shape: shape.Name, Expr: identStr, Err: err}
	}

	return &Pattern{
		shape:     shape,
		projectID: strings.ToUpper(projectID),
		prefix:    projectID + shape.TagSeparator,
		predicate: pred,
		splitter:  spl,
		ident:     ident,
	}, nil
}

// predicateExpr builds e.g. for [foo-1 & foo-2]:
//
//	(?i)^[ \t]*\[[ \t]*(?P<inner>foo-[0-9]+(?:[ ]+&[ ]+foo-[0-9]+)*)[ \t]*\]
func predicateExpr(projectID string, shape ShapeSpec) string {
	ident := identExpr(projectID, shape.TagSeparator, `[0-9]+`)

	var b strings.Builder
	b.WriteString(`(?i)^[ \t]*`)
	b.WriteString(shape.OpenTag)
	b.WriteString(`[ \t]*(?P<inner>`)
	b.WriteString(ident)
	b.WriteString(`(?:`)
	b.WriteString(shape.MultiSeparator)
	b.WriteString(ident)
	b.WriteString(`)*)[ \t]*`)
	b.WriteString(shape.CloseTag)
	return b.String()
}

func identExpr(projectID, tagSeparator, number string) string {
	return regexp.QuoteMeta(projectID) + regexp.QuoteMeta(tagSeparator) + number
}

// Shape returns the shape the pattern was built from.
func (p *Pattern) Shape() ShapeSpec {
	return p.shape
}

// Find returns the tokens of the group at the start of line, or false when
// the line does not contain this shape.
func (p *Pattern) Find(line string) ([]string, bool) {
	m := p.predicate.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	inner := m[p.predicate.SubexpIndex("inner")]

	segments := p.splitter.Split(inner, -1)
	tokens := make([]string, 0, len(segments))
	for _, seg := range segments {
		number, ok := p.number(seg)
		if !ok {
			// The splitter cut through an identifier, e.g. a project id
			// containing the separator. Read the identifiers directly.
			return p.scanInner(inner)
		}
		tokens = append(tokens, p.projectID+"-"+number)
	}
	return tokens, true
}

func (p *Pattern) scanInner(inner string) ([]string, bool) {
	matches := p.ident.FindAllStringSubmatch(inner, -1)
	if len(matches) == 0 {
		return nil, false
	}
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, p.projectID+"-"+m[1])
	}
	return tokens, true
}

// number extracts the first run of ASCII digits following the project id and
// tag separator that seg must start with.
func (p *Pattern) number(seg string) (string, bool) {
	seg = strings.TrimLeft(seg, " \t")
	if len(seg) < len(p.prefix) || !strings.EqualFold(seg[:len(p.prefix)], p.prefix) {
		return "", false
	}
	seg = seg[len(p.prefix):]

	start := -1
	for i := 0; i < len(seg); i++ {
		isDigit := seg[i] >= '0' && seg[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			return seg[start:i], true
		}
	}
	if start < 0 {
		return "", false
	}
	return seg[start:], true
}
