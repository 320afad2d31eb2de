// pattern: Functional Core

package checkpoint

import (
	"strings"
)

// logFormat is the pretty format parsed by parseLog.
const logFormat = "%h|%cr - %s"

// parseLog turns `git log --pretty=format:%h|%cr - %s` output into
// checkpoints, keeping git's order. Lines without a '|' are skipped.
func parseLog(out string) []Checkpoint {
	var checkpoints []Checkpoint
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		id, rest, ok := strings.Cut(line, "|")
		if !ok || id == "" {
			continue
		}
		age, label, _ := strings.Cut(rest, " - ")
		checkpoints = append(checkpoints, Checkpoint{ID: id, Age: age, Label: label})
	}
	return checkpoints
}

// parseNameStatus parses `git diff --name-status -z`. Renames and copies
// carry two paths; the destination is reported.
func parseNameStatus(out string) []FileStatus {
	fields := splitNUL(out)
	var files []FileStatus
	for i := 0; i < len(fields); i++ {
		code := fields[i]
		paths := 1
		if strings.HasPrefix(code, "R") || strings.HasPrefix(code, "C") {
			paths = 2
		}
		if i+paths >= len(fields) {
			break
		}
		i += paths
		files = append(files, FileStatus{Code: code, Path: fields[i]})
	}
	return files
}

// mergeUntracked appends untracked paths to files, skipping any path that
// is already listed.
func mergeUntracked(files []FileStatus, untracked []string) []FileStatus {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
	}
	for _, path := range untracked {
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		files = append(files, FileStatus{Code: UntrackedCode, Path: path})
	}
	return files
}

// parseLines splits newline separated output, dropping blanks.
func parseLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitNUL(out string) []string {
	out = strings.TrimRight(out, "\x00")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\x00")
}

// addArgs returns the pathspec for `git add`.
func addArgs(files []string) []string {
	if len(files) == 0 || (len(files) == 1 && files[0] == ".") {
		return []string{"."}
	}
	return append([]string{"--"}, files...)
}

// restoredMessage is the label of the checkpoint created by RevertFiles.
func restoredMessage(files []string) string {
	return "Restored files: " + strings.Join(files, " ")
}
