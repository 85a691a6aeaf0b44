package loop

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ProjectKey names the per-project log directory: a slug of the directory
// name plus a short hash of its absolute path, so two checkouts called
// "api" do not share logs.
func ProjectKey(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(filepath.Base(abs)), "-"), "-")
	if slug == "" {
		slug = "project"
	}
	sum := sha1.Sum([]byte(abs))
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}

// AgentLogPath is the file an agent's raw output is teed into for one
// iteration.
func AgentLogPath(logDir, projectKey, batch string, iteration, agent int) string {
	return filepath.Join(logDir, projectKey, fmt.Sprintf("%s-iter%03d-agent%d.log", batch, iteration, agent))
}

// lastMessagePath is where tools that support it write their final
// assistant message. Each phase gets its own file.
func lastMessagePath(logPath, phase string) string {
	return strings.TrimSuffix(logPath, ".log") + "-" + phase + ".last.txt"
}
