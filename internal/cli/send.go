package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/engine"
	"github.com/roach88/eigen/internal/hostlib"
	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/store"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	Args     string // JSON array of message arguments
	Init     string // JSON array of initialize arguments
	ToClass  bool   // send to the class itself instead of a new instance
	Database string // optional trace database
}

// SendResult is the outcome of one send.
type SendResult struct {
	RunToken string          `json:"run_token"`
	Receiver string          `json:"receiver"`
	Message  string          `json:"message"`
	Outcome  string          `json:"outcome"`
	Result   json.RawMessage `json:"result"`
	Error    string          `json:"error,omitempty"`
	Sends    int             `json:"sends"`
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send <bundle-dir> <class> <message>",
		Short: "Construct an instance and send it a message",
		Long: `Install a bundle, construct an instance of a class and send it a message.

Arguments are JSON arrays. The whole dispatch, including initialize, super
calls and methodMissing fallbacks, is traced; with --db the trace is
appended to a SQLite database for later inspection with "eigen trace".

Examples:
  eigen send ./bundle B num --args '[2]'
  eigen send ./bundle Point norm --init '[3, 4]'
  eigen send ./bundle Box count --class --args '[1, 2]'
  eigen send ./bundle B num --args '[2]' --db ./trace.db`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "message arguments as a JSON array")
	cmd.Flags().StringVar(&opts.Init, "init", "[]", "initialize arguments as a JSON array")
	cmd.Flags().BoolVar(&opts.ToClass, "class", false, "send to the class instead of a new instance")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the trace to this SQLite database")

	return cmd
}

func runSend(opts *SendOptions, dir, className, message string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	msgArgs, err := ParseArgs(opts.Args)
	if err != nil {
		_ = f.Error(ErrCodeInvalidArgs, "invalid --args: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}
	initArgs, err := ParseArgs(opts.Init)
	if err != nil {
		_ = f.Error(ErrCodeInvalidArgs, "invalid --init: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --init", err)
	}

	e, loaded, err := InstallBundle(dir, hostlib.Default(), opts.Logger())
	if err != nil {
		return reportLoadError(f, err)
	}

	class, ok := e.LookupClass(className)
	if !ok {
		_ = f.Error(ErrCodeUnknownName, fmt.Sprintf("no class named %q", className), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("unknown class %q", className))
	}

	recOpts := []store.RecorderOption{store.WithBundleHash(loaded.Hash), store.WithContext(ctx)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		// seq is global across runs in one database
		last, err := st.GetLastSeq(ctx)
		if err != nil {
			_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		recOpts = append(recOpts, store.WithStore(st), store.WithSequencer(engine.NewClockAt(last)))
	}
	rec := store.NewRecorder(engine.UUIDv7Generator{}.Generate(), recOpts...)
	e.SetTracer(rec)

	var recv engine.Receiver = class
	if !opts.ToClass {
		obj, err := class.Construct(initArgs...)
		if err != nil {
			_ = f.Error(codeOf(err), "initialize failed: "+err.Error(), nil)
			return WrapExitError(ExitFailure, "initialize failed", err)
		}
		recv = obj
	}
	value, sendErr := e.Send(recv, message, msgArgs...)
	e.SetTracer(nil)

	if err := rec.Err(); err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to record trace", err)
	}

	result, err := buildSendResult(rec, recv, message, value, sendErr)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot encode result", err)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if sendErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: codeOf(sendErr), Message: sendErr.Error()}
		}
		if err := f.JSON(resp); err != nil {
			return err
		}
	} else {
		if opts.Verbose {
			printTimeline(f, eventsToTimeline(rec.Events(), ""))
		}
		if sendErr != nil {
			_ = f.Error(codeOf(sendErr), sendErr.Error(), nil)
		} else {
			fmt.Fprintf(f.Writer, "%s %s\n", f.Style.Pass("=>"), result.Result)
		}
		f.VerboseLog("run %s: %d send(s)", result.RunToken, result.Sends)
	}

	if sendErr != nil {
		return WrapExitError(ExitFailure, "send failed", sendErr)
	}
	return nil
}

// ParseArgs decodes a JSON array into dispatch arguments.
func ParseArgs(raw string) ([]engine.Value, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(raw))
	if err != nil {
		return nil, err
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %s", string(ir.MustMarshalCanonical(v)))
	}
	args, _ := ir.ToGo(arr).([]any)
	return args, nil
}

func buildSendResult(rec *store.Recorder, recv engine.Receiver, message string, value engine.Value, sendErr error) (SendResult, error) {
	iv, err := ir.FromGo(value)
	if err != nil {
		return SendResult{}, err
	}
	encoded, err := ir.MarshalCanonical(iv)
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{
		RunToken: rec.RunToken(),
		Receiver: recv.Inspect(),
		Message:  message,
		Outcome:  engine.OutcomeOK,
		Result:   encoded,
		Sends:    len(rec.Sends()),
	}
	switch {
	case engine.IsNoSuchMethod(sendErr):
		result.Outcome = engine.OutcomeMissing
		result.Error = sendErr.Error()
	case sendErr != nil:
		result.Outcome = engine.OutcomeError
		result.Error = sendErr.Error()
	}
	return result, nil
}

// codeOf names an error for CLI output: its dispatch code when it has one.
func codeOf(err error) string {
	if code, ok := engine.CodeOf(err); ok {
		return string(code)
	}
	return ErrCodeSendFailed
}
