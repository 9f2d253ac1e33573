package issueref

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func mustNew(t *testing.T, projectID string) *Tokenizer {
	t.Helper()
	tok, err := New(projectID)
	if err != nil {
		t.Fatalf("New(%q): %v", projectID, err)
	}
	return tok
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "bracket group",
			input: "[FOO-9 & FOO-10]",
			want:  []string{"FOO-9", "FOO-10"},
		},
		{
			name: "mixed shapes",
			input: "[foo-1] hello world\n" +
				"(foo-2, foo-3) lorem ipsum\n" +
				"foo-4 tisk tisk\n" +
				"foo-5 foo-6 yep\n" +
				"foo-7, foo-8 YERP",
			want: []string{"FOO-1", "FOO-2", "FOO-3", "FOO-4", "FOO-5", "FOO-6", "FOO-7", "FOO-8"},
		},
		{
			name: "indented lines",
			input: "[foo-1] hello world\n" +
				"        (foo-2, foo-3) lorem ipsum\n" +
				"        foo-4 tisk tisk",
			want: []string{"FOO-1", "FOO-2", "FOO-3", "FOO-4"},
		},
		{
			name:  "parenthesized space list",
			input: "(foo-10 foo-2) YOLO",
			want:  []string{"FOO-10", "FOO-2"},
		},
		{
			name:  "whitespace inside brackets",
			input: " [ foo-100  ] foobar",
			want:  []string{"FOO-100"},
		},
		{
			name:  "no digits",
			input: "[foo ]",
			want:  nil,
		},
		{
			name:  "other project",
			input: "bar-12",
			want:  nil,
		},
		{
			name:  "key not at start of line",
			input: "fix typo in foo-12",
			want:  nil,
		},
		{
			name:  "leading zeros kept",
			input: "foo-007 bond",
			want:  []string{"FOO-007"},
		},
		{
			name:  "duplicates kept",
			input: "foo-1 first\n[foo-1 & foo-1] again",
			want:  []string{"FOO-1", "FOO-1", "FOO-1"},
		},
		{
			name:  "crlf and blank lines",
			input: "foo-1 a\r\n\r\n\nfoo-2 b\rfoo-3 c",
			want:  []string{"FOO-1", "FOO-2", "FOO-3"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}
	tok := mustNew(t, "foo")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseShapeIndependence(t *testing.T) {
	tok := mustNew(t, "foo")
	for _, line := range []string{"[foo-5] x", "(foo-5) x", "foo-5 x", "foo-5, x", "(FOO-5)"} {
		got := tok.ParseLine(line)
		if !reflect.DeepEqual(got, []string{"FOO-5"}) {
			t.Errorf("ParseLine(%q) = %v, want [FOO-5]", line, got)
		}
	}
}

func TestParseCanonicalCase(t *testing.T) {
	for _, projectID := range []string{"foo", "Foo", "FOO"} {
		tok := mustNew(t, projectID)
		for _, line := range []string{"foo-1", "Foo-1", "FOO-1"} {
			got := tok.ParseLine(line)
			if !reflect.DeepEqual(got, []string{"FOO-1"}) {
				t.Errorf("project %q: ParseLine(%q) = %v, want [FOO-1]", projectID, line, got)
			}
		}
	}
}

func TestParseLineTieKeepsEarlierShape(t *testing.T) {
	plain := ShapeSpec{Name: "plain", TagSeparator: "-", MultiSeparator: `[ ]*,[ ]+`}
	second := ShapeSpec{Name: "second", TagSeparator: "-", OpenTag: `foo-[0-9]+[ ]+`, MultiSeparator: `[ ]*,[ ]+`}

	tests := []struct {
		shapes []ShapeSpec
		want   []string
	}{
		{[]ShapeSpec{plain, second}, []string{"FOO-1"}},
		{[]ShapeSpec{second, plain}, []string{"FOO-2"}},
	}
	for _, tt := range tests {
		tok, err := NewWithShapes("foo", tt.shapes)
		if err != nil {
			t.Fatalf("NewWithShapes: %v", err)
		}
		got := tok.ParseLine("foo-1 foo-2")
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("shapes %s,%s: got %v, want %v", tt.shapes[0].Name, tt.shapes[1].Name, got, tt.want)
		}
	}
}

func TestParseLineLongestWins(t *testing.T) {
	tok := mustNew(t, "foo")
	// bare-space finds one key, bare-comma finds three.
	got := tok.ParseLine("foo-1, foo-2, foo-3 done")
	want := []string{"FOO-1", "FOO-2", "FOO-3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProjectIDWithMetacharacters(t *testing.T) {
	tok := mustNew(t, "c++")
	got := tok.Parse("[c++-3] fix\ncc-4 nope\nc+-5 nope")
	if !reflect.DeepEqual(got, []string{"C++-3"}) {
		t.Errorf("got %v, want [C++-3]", got)
	}
}

func TestProjectIDWithDigits(t *testing.T) {
	tok := mustNew(t, "r2")
	got := tok.Parse("(R2-15, r2-16) beep")
	want := []string{"R2-15", "R2-16"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestProjectIDContainingSeparator(t *testing.T) {
	// The space-separated shape splits "a1 b-5" through the project id.
	tok := mustNew(t, "a1 b")
	got := tok.ParseLine("a1 b-5 fix")
	want := []string{"A1 B-5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseLine = %v, want %v", got, want)
	}

	got = tok.ParseLine("a1 b-5 a1 b-6 fix")
	want = []string{"A1 B-5", "A1 B-6"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseLine = %v, want %v", got, want)
	}
}

func TestProjectID(t *testing.T) {
	tok := mustNew(t, "foo")
	if tok.ProjectID() != "FOO" {
		t.Errorf("ProjectID() = %q, want %q", tok.ProjectID(), "FOO")
	}
}

func TestNewEmptyProjectID(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrEmptyProjectID) {
		t.Fatalf("New(\"\") error = %v, want ErrEmptyProjectID", err)
	}
	var buildErr *PatternBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *PatternBuildError, got %T", err)
	}
}

func TestNewWithShapesBadExpression(t *testing.T) {
	tests := []struct {
		name  string
		shape ShapeSpec
	}{
		{"open tag", ShapeSpec{Name: "broken", TagSeparator: "-", OpenTag: `(`, MultiSeparator: `[ ]+`}},
		{"multi separator", ShapeSpec{Name: "broken", TagSeparator: "-", MultiSeparator: `(`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes := append(DefaultShapes(), tt.shape)
			_, err := NewWithShapes("foo", shapes)
			var buildErr *PatternBuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("expected *PatternBuildError, got %v", err)
			}
			if buildErr.Shape != "broken" {
				t.Errorf("Shape = %q, want %q", buildErr.Shape, "broken")
			}
		})
	}
}

func TestParseConcurrent(t *testing.T) {
	tok := mustNew(t, "foo")
	want := []string{"FOO-1", "FOO-2"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := tok.Parse("[foo-1 & foo-2] x\nnoise"); !reflect.DeepEqual(got, want) {
					t.Errorf("got %v, want %v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestValidateProjectID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"FOO", false},
		{"foo_2", false},
		{"R2", false},
		{"", true},
		{"2FA", true},
		{"c++", true},
		{"FOO-1", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateProjectID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeProjectID(t *testing.T) {
	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{"foo", "FOO", false},
		{"FOO-12", "FOO", false},
		{" noob-9000 ", "NOOB", false},
		{"r2", "R2", false},
		{"r2-2", "R2", false},
		{"", "", true},
		{"-12", "", true},
		{"f(o)o", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := NormalizeProjectID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeProjectID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeProjectID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}
