package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Reader lists commit subjects from a local git clone.
type Reader struct {
	dir string
}

func NewReader(dir string) *Reader {
	if dir == "" {
		dir = "."
	}
	return &Reader{dir: dir}
}

// Subjects returns the subject of every commit reachable from latest but not
// from release, one per line, newest first.
func (r *Reader) Subjects(ctx context.Context, release, latest string) (string, error) {
	if release == "" || latest == "" {
		return "", errors.New("both release and latest branches are required")
	}
	for _, b := range []string{release, latest} {
		if strings.HasPrefix(b, "-") {
			return "", fmt.Errorf("invalid branch name %q", b)
		}
	}

	revRange := release + ".." + latest
	slog.Info("reading git log", "dir", r.dir, "range", revRange)

	cmd := exec.CommandContext(ctx, "git", "-C", r.dir, "log", "--pretty=%s", revRange, "--")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git log %s: %s", revRange, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git log %s: %w", revRange, err)
	}
	return string(out), nil
}
