package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes run reports to an output.
type Reporter interface {
	// Write emits a single run report.
	Write(report *RunReport) error
	// Close releases the underlying output. Stdout is never closed.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("json" or "text") writing to outputPath.
// An empty path or "stdout" writes to stdout, which is never closed.
func New(format, outputPath string, stdout io.Writer) (Reporter, error) {
	switch format {
	case "json", "text":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		if stdout == nil {
			stdout = os.Stdout
		}
		writer = &nopWriteCloser{stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == "text" {
		return NewTextReporter(writer), nil
	}
	return NewJSONReporter(writer), nil
}

// JSONReporter writes each report as an indented JSON document.
type JSONReporter struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewJSONReporter takes ownership of w.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{out: w}
}

func (r *JSONReporter) Write(report *RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.out.Close()
}

// TextReporter writes a short human-readable summary.
type TextReporter struct {
	mu  sync.Mutex
	out io.WriteCloser
}

// NewTextReporter takes ownership of w.
func NewTextReporter(w io.WriteCloser) *TextReporter {
	return &TextReporter{out: w}
}

func (r *TextReporter) Write(report *RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "run %s  r/%s  index=%d", report.RunID, report.Subreddit, report.TargetIndex)
	if report.DryRun {
		b.WriteString("  (dry run)")
	}
	b.WriteString("\n")
	for _, s := range report.Steps {
		fmt.Fprintf(&b, "  [%-7s] %s", s.Status, s.Name)
		if s.Detail != "" {
			fmt.Fprintf(&b, ": %s", s.Detail)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, " (%s)", s.Error)
		}
		b.WriteString("\n")
	}
	if d := report.Decision; d != nil {
		fmt.Fprintf(&b, "  candidate #%d %q -> %s\n", d.Candidate.Rank, d.Candidate.Title, d.Action)
		if report.PermalinkURL != "" {
			fmt.Fprintf(&b, "  %s\n", report.PermalinkURL)
		}
		if d.Outcome != nil {
			fmt.Fprintf(&b, "  outcome: %s\n", d.Outcome.Kind)
		}
	}
	if report.Error != "" {
		fmt.Fprintf(&b, "  error: %s\n", report.Error)
	}

	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.out.Close()
}
