package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failure, failed send, invalid bundle
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output, so JSON on Writer stays clean
	Verbose   bool
	Style     *Styler
}

// newFormatter builds the formatter for a command run.
func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
		Style:     NewStyler(out),
	}
}

// JSON writes an indented CLIResponse.
func (f *OutputFormatter) JSON(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", f.Style.Fail("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Styler colors pass/fail markers when writing to a terminal and leaves
// them plain otherwise, so piped output and tests see bare text.
type Styler struct {
	enabled bool
	pass    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style
	bold    lipgloss.Style
}

// NewStyler enables styling only when w is a terminal.
func NewStyler(w io.Writer) *Styler {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Styler{
		enabled: enabled,
		pass:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		bold:    lipgloss.NewStyle().Bold(true),
	}
}

func (s *Styler) render(pick func(*Styler) lipgloss.Style, text string) string {
	if s == nil || !s.enabled {
		return text
	}
	return pick(s).Render(text)
}

// Pass renders a success marker or text.
func (s *Styler) Pass(text string) string {
	return s.render(func(s *Styler) lipgloss.Style { return s.pass }, text)
}

// Fail renders a failure marker or text.
func (s *Styler) Fail(text string) string {
	return s.render(func(s *Styler) lipgloss.Style { return s.fail }, text)
}

// Dim renders secondary text.
func (s *Styler) Dim(text string) string {
	return s.render(func(s *Styler) lipgloss.Style { return s.dim }, text)
}

// Bold renders headings.
func (s *Styler) Bold(text string) string {
	return s.render(func(s *Styler) lipgloss.Style { return s.bold }, text)
}
