package main

//
// Logging functionality
//

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// logHandler is the github.com/apex/log handler writing one line per entry
// prefixed by the seconds elapsed since we created the handler.
type logHandler struct {
	mu    sync.Mutex
	start time.Time
	w     io.Writer
}

var _ log.Handler = &logHandler{}

// newLogHandler creates a new [*logHandler] writing to w.
func newLogHandler(w io.Writer) *logHandler {
	return &logHandler{start: time.Now(), w: w}
}

// HandleLog implements log.Handler
func (h *logHandler) HandleLog(e *log.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%14.6f] <%s> %s", time.Since(h.start).Seconds(), e.Level, e.Message)
	names := e.Fields.Names()
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteString("\n")
	defer h.mu.Unlock()
	h.mu.Lock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
