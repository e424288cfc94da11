package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ChangedFile is a file touched by a diff together with the lines of its new
// version that were added or modified. Path is absolute when the file comes
// from a repository; parseDiff alone leaves it repository-relative.
type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// Touches reports whether line is among the changed lines.
func (c ChangedFile) Touches(line int) bool {
	for _, l := range c.ChangedLines {
		if l == line {
			return true
		}
	}
	return false
}

// chunkHeader matches "@@ -oldStart,oldLen +newStart,newLen @@"; only the new
// side matters.
var chunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// ChangedSince diffs the working tree of dir against baseRef.
func ChangedSince(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	return diff(ctx, dir, baseRef)
}

// ChangedBetween diffs two revisions.
func ChangedBetween(ctx context.Context, dir, base, head string) ([]ChangedFile, error) {
	return diff(ctx, dir, base, head)
}

// Revision returns the commit HEAD points at in dir.
func Revision(ctx context.Context, dir string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// TopLevel returns the root of the working tree containing dir.
func TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// diff runs git diff in dir. Git prints paths relative to the top level no
// matter where it runs, so they are anchored there.
func diff(ctx context.Context, dir string, refs ...string) ([]ChangedFile, error) {
	args := append([]string{"-C", dir, "diff", "-U0", "--no-color", "--no-ext-diff"}, refs...)
	output, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("git diff %s failed: %s", strings.Join(refs, " "), strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("git diff %s failed: %w", strings.Join(refs, " "), err)
	}
	changes, err := parseDiff(output)
	if err != nil {
		return nil, err
	}
	top, err := TopLevel(ctx, dir)
	if err != nil {
		return nil, err
	}
	for i := range changes {
		changes[i].Path = filepath.Join(top, filepath.FromSlash(changes[i].Path))
	}
	return changes, nil
}

// parseDiff reads unified diff output. Deleted files are dropped since they
// have no new version to analyze; pure deletions inside a file contribute no
// lines.
func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var changes []ChangedFile
	var current *ChangedFile
	flush := func() {
		if current != nil {
			changes = append(changes, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				current = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/"), ChangedLines: []int{}}
			}
		case current == nil:
		case strings.HasPrefix(line, "+++ "):
			target := strings.TrimPrefix(line, "+++ ")
			if target == "/dev/null" {
				current = nil
				continue
			}
			current.Path = strings.TrimPrefix(target, "b/")
		case strings.HasPrefix(line, "@@"):
			m := chunkHeader.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("malformed hunk header %q", line)
			}
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			for i := 0; i < count; i++ {
				current.ChangedLines = append(current.ChangedLines, start+i)
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read diff: %w", err)
	}
	return changes, nil
}
