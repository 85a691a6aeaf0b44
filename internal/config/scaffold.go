package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreEntry keeps per-agent logs and session files out of version
// control.
const gitignoreEntry = ".swarm/"

// ScaffoldProject creates swarm.toml and the prompt files in dir, and adds
// .swarm/ to .gitignore. Existing files are left untouched. It returns the
// paths it created or changed.
func ScaffoldProject(dir string) ([]string, error) {
	var created []string

	tomlPath := filepath.Join(dir, FileName)
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		if _, initErr := InitFile(dir); initErr != nil {
			return created, initErr
		}
		created = append(created, tomlPath)
	}

	defaults := Defaults()
	prompts := []struct {
		name, body string
	}{
		{defaults.Loop.PromptFile, loopPromptTemplate},
		{defaults.Review.PromptFile, reviewPromptTemplate},
		{defaults.Review.FixPromptFile, fixPromptTemplate},
	}
	for _, p := range prompts {
		path := filepath.Join(dir, p.name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(p.body), 0644); err != nil {
			return created, fmt.Errorf("scaffold: write %s: %w", path, err)
		}
		created = append(created, path)
	}

	changed, err := ensureGitignore(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return created, err
	}
	if changed != "" {
		created = append(created, changed)
	}
	return created, nil
}

func ensureGitignore(path string) (string, error) {
	existing, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		existing = nil
	case err != nil:
		return "", fmt.Errorf("scaffold: read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == gitignoreEntry {
			return "", nil
		}
	}
	content := string(existing)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += gitignoreEntry + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("scaffold: write %s: %w", path, err)
	}
	return path, nil
}

const loopPromptTemplate = `You are one of several agents working on this repository at the same time.

1. Study the codebase and pick ONE unfinished task. If a task was assigned
   to you below, work on that one.
2. Implement it fully: no placeholders, no stubs.
3. Run the tests and make sure they pass.
4. Commit with a descriptive message.

If there is nothing left to do, reply with exactly: NO_TASKS_AVAILABLE
`

const reviewPromptTemplate = `Review the most recent commit in this repository.

Check that it is complete, tested, and consistent with the surrounding code.
If it is acceptable, reply with exactly: REVIEW_PASS
Otherwise list the problems that must be fixed.
`

const fixPromptTemplate = `A review of the most recent commit found problems.
Fix every problem listed below, run the tests, and amend or add a commit.

Review findings:
`
