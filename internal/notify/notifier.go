// Package notify sends fire-and-forget HTTP notifications for loop events.
// The primary use case is ntfy.sh, but any HTTP webhook works.
package notify

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/config"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
)

// DefaultTitle is the X-Title header used when the project has no name.
const DefaultTitle = "swarm"

// Notifier posts plain-text HTTP notifications for selected loop events.
type Notifier struct {
	url    string
	title  string
	cfg    config.NotificationsConfig
	client *http.Client
	wg     sync.WaitGroup
}

// New creates a Notifier from the [notifications] section. projectName is
// used as the X-Title header.
func New(cfg config.NotificationsConfig, projectName string) *Notifier {
	title := DefaultTitle
	if projectName != "" {
		title = projectName
	}
	return &Notifier{
		url:    cfg.URL,
		title:  title,
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Hook is a loop.Loop.NotificationHook-compatible function. It fires
// asynchronous POSTs for events that match the configured notification flags.
func (n *Notifier) Hook(entry loop.LogEntry) {
	var send bool
	switch entry.Kind {
	case loop.LogIterComplete:
		send = n.cfg.OnComplete
	case loop.LogError:
		send = n.cfg.OnError
	case loop.LogDone, loop.LogStopped:
		send = n.cfg.OnStop
	}
	if !send || n.url == "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.post(entry)
	}()
}

// Wait blocks until in-flight notifications finish or timeout passes, so
// the final LogDone is not lost when the process exits.
func (n *Notifier) Wait(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// post sends a plain-text POST to the configured URL. Failures are logged
// at debug level and never interrupt the loop.
func (n *Notifier) post(entry loop.LogEntry) {
	req, err := http.NewRequest(http.MethodPost, n.url, strings.NewReader(Message(entry)))
	if err != nil {
		log.Debug("notify: build request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Title", n.title)
	priority, tags := headersFor(entry)
	req.Header.Set("X-Priority", priority)
	req.Header.Set("X-Tags", tags)
	resp, err := n.client.Do(req)
	if err != nil {
		log.Debug("notify: post", "err", err)
		return
	}
	resp.Body.Close()
}

// Message renders entry as notification text.
func Message(entry loop.LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Message)
	if entry.Agent > 0 && !strings.Contains(entry.Message, fmt.Sprintf("Agent %d", entry.Agent)) {
		fmt.Fprintf(&b, " (agent %d)", entry.Agent)
	}
	if u := entry.Usage; u != nil {
		fmt.Fprintf(&b, "\ntokens: %d in (%d cached), %d out", u.InputTokens, u.CachedInputTokens, u.OutputTokens)
	}
	if entry.Commit != "" {
		fmt.Fprintf(&b, "\ncommit: %s", entry.Commit)
	}
	return b.String()
}

// headersFor maps an entry to ntfy priority and tags.
func headersFor(entry loop.LogEntry) (priority, tags string) {
	switch entry.Kind {
	case loop.LogError:
		return "high", "warning"
	case loop.LogStopped:
		return "default", "stop_sign"
	case loop.LogDone:
		if entry.Stop {
			return "default", "tada"
		}
		return "default", "checkered_flag"
	}
	if entry.Outcome == "failed" {
		return "default", "x"
	}
	return "low", "white_check_mark"
}
