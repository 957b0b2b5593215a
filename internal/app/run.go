package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"legal_rag/internal/extract"
	"legal_rag/internal/retrieval"
)

// Session holds the REPL user's defaults.
type Session struct {
	Owner      string
	Source     string
	DocumentID string
}

// Run reads one line at a time. A path to a supported file is uploaded for
// the session owner, "/status <id>" prints a document record, and anything
// else is answered as a question.
func (a *App) Run(ctx context.Context, sess Session) error {
	a.log.Info("application started", "owner", sess.Owner, "source", sess.Source)
	fmt.Fprintln(a.out, "प्रश्न सोध्नुहोस् वा कागजातको path दिनुहोस् (Ctrl+D to exit).")

	scanner := bufio.NewScanner(a.in)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutting down application")
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("stdin error: %w", err)
			}
			a.log.Info("stdin closed")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		a.handleLine(ctx, sess, line)
	}
}

func (a *App) handleLine(ctx context.Context, sess Session, line string) {
	if id, ok := strings.CutPrefix(line, "/status "); ok {
		a.printStatus(strings.TrimSpace(id))
		return
	}

	if info, err := os.Stat(line); err == nil && !info.IsDir() {
		if !extract.SupportedFile(line) {
			fmt.Fprintf(a.out, "unsupported file: %s\n", line)
			return
		}
		rec, err := a.Upload(sess.Owner, uuid.NewString(), line)
		if err != nil {
			fmt.Fprintf(a.out, "upload failed: %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "document %s queued (%s)\n", rec.ID, rec.Status)
		return
	}

	ans, err := a.Ask(ctx, Question{
		Text:       line,
		Owner:      sess.Owner,
		Source:     sess.Source,
		DocumentID: sess.DocumentID,
	})
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "\n%s\n", ans.Text)
	if s := formatSources(ans.Sources); s != "" {
		fmt.Fprintf(a.out, "\n[%s] %s\n\n", ans.Mode, s)
	}
}

func (a *App) printStatus(id string) {
	rec, ok := a.Document(id)
	if !ok {
		fmt.Fprintf(a.out, "unknown document: %s\n", id)
		return
	}
	fmt.Fprintf(a.out, "%s: %s", rec.ID, rec.Status)
	switch rec.Status {
	case StatusCompleted:
		fmt.Fprintf(a.out, " (%d chunks, %d pages)", rec.NumChunks, rec.NumPages)
	case StatusFailed:
		fmt.Fprintf(a.out, " (%s)", rec.Error)
	}
	fmt.Fprintln(a.out)
}

func formatSources(sources map[retrieval.Source]int) string {
	parts := make([]string, 0, len(sources))
	for src, n := range sources {
		parts = append(parts, fmt.Sprintf("%s: %d", src, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
