package issueref

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ShapeSpec describes one way of writing issue keys on a line.
type ShapeSpec struct {
	Name string `yaml:"name"`
	// TagSeparator joins the project id and the number and is matched literally.
	TagSeparator string `yaml:"tag_separator"`
	// OpenTag, CloseTag and MultiSeparator are regular expression fragments.
	OpenTag        string `yaml:"open_tag"`
	CloseTag       string `yaml:"close_tag"`
	MultiSeparator string `yaml:"multi_separator"`
}

// ShapesFile is the YAML document read by LoadShapesFile.
type ShapesFile struct {
	Shapes []ShapeSpec `yaml:"shapes"`
}

const defaultTagSeparator = "-"

// DefaultShapes returns the built-in shapes. Order matters: it breaks ties
// between shapes finding the same number of keys.
func DefaultShapes() []ShapeSpec {
	return []ShapeSpec{
		// [FOO-1 & FOO-2] subject
		{Name: "bracket-ampersand", TagSeparator: "-", OpenTag: `\[`, CloseTag: `\]`, MultiSeparator: `[ ]+&[ ]+`},
		// (FOO-1 FOO-2) subject
		{Name: "paren-space", TagSeparator: "-", OpenTag: `[(]`, CloseTag: `[)]`, MultiSeparator: `[ ]+`},
		// (FOO-1, FOO-2) subject
		{Name: "paren-comma", TagSeparator: "-", OpenTag: `[(]`, CloseTag: `[)]`, MultiSeparator: `[ ]*,[ ]+`},
		// FOO-1 FOO-2 subject
		{Name: "bare-space", TagSeparator: "-", MultiSeparator: `[ ]+`},
		// FOO-1, FOO-2 subject
		{Name: "bare-comma", TagSeparator: "-", MultiSeparator: `[ ]*,[ ]+`},
	}
}

// LoadShapesFile reads additional shapes from a YAML file.
func LoadShapesFile(filename string) ([]ShapeSpec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read shapes file: %w", err)
	}
	return ParseShapes(data)
}

// ParseShapes decodes a shapes document. A missing tag separator defaults
// to "-".
func ParseShapes(data []byte) ([]ShapeSpec, error) {
	var file ShapesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse shapes: %w", err)
	}
	for i := range file.Shapes {
		s := &file.Shapes[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("shape-%d", i+1)
		}
		if s.MultiSeparator == "" {
			return nil, fmt.Errorf("shape %q: %w", s.Name, errNoMultiSeparator)
		}
		if s.TagSeparator == "" {
			s.TagSeparator = defaultTagSeparator
		}
	}
	return file.Shapes, nil
}

var errNoMultiSeparator = errors.New("multi_separator is required")

// MarshalShapes encodes shapes in the format read by ParseShapes.
func MarshalShapes(shapes []ShapeSpec) ([]byte, error) {
	return yaml.Marshal(ShapesFile{Shapes: shapes})
}
