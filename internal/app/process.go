package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"alert-digest/internal/digest"
	"alert-digest/internal/service"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Process runs the pipeline over the inputs and writes the report.
func (a *App) Process(ctx context.Context, opts ProcessOptions) error {
	format := opts.Format
	if format == "" {
		format = a.Config.Report.Format
	}
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("unknown report format %q", format)
	}

	result, err := a.run(ctx, opts.Paths)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.Output != "" && opts.Output != "-" {
		if err := ensureDir(opts.Output); err != nil {
			return err
		}
		file, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := writeReport(out, format, result); err != nil {
		return err
	}

	if opts.Notify {
		return a.deliver(ctx, result)
	}
	return nil
}

func writeReport(w io.Writer, format string, result *service.Result) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}
	return writeText(w, result)
}

type jsonReport struct {
	Results *digest.Report `json:"resultados"`
	Errors  []string       `json:"errores"`
}

func writeJSON(w io.Writer, result *service.Result) error {
	doc := jsonReport{
		Results: result.Report,
		Errors:  rejectionMessages(result.Rejections),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func writeText(w io.Writer, result *service.Result) error {
	ew := &errWriter{w: w}
	for i, date := range result.Report.Dates() {
		if i > 0 {
			ew.printf("\n")
		}
		ew.printf("== %s ==\n", date)
		for _, line := range result.Report.Lines(date) {
			ew.printf("%s\n", line)
		}
	}
	if len(result.Rejections) > 0 {
		if result.Report.Len() > 0 {
			ew.printf("\n")
		}
		ew.printf("Errores (%d):\n", len(result.Rejections))
		for _, rej := range result.Rejections {
			ew.printf("- %s\n", sanitizeInline(rej.Message))
		}
	}
	return ew.err
}

func rejectionMessages(rejections []digest.Rejection) []string {
	messages := make([]string, 0, len(rejections))
	for _, rej := range rejections {
		messages = append(messages, rej.Message)
	}
	return messages
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
