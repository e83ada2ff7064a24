package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/queryir"
	"github.com/roach88/eigen/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunToken string
	Message  string   // optional - filter to one message name
	Where    []string // field=value or field>=n conditions
}

// TimelineEvent is one send or reply in a printed trace.
type TimelineEvent struct {
	Seq      int64      `json:"seq"`
	Type     string     `json:"type"` // "send" or "reply"
	ID       string     `json:"id"`
	Kind     string     `json:"kind,omitempty"`
	Receiver string     `json:"receiver,omitempty"`
	Message  string     `json:"message,omitempty"`
	Function string     `json:"function,omitempty"`
	Args     ir.IRArray `json:"args,omitempty"`
	Depth    int64      `json:"depth,omitempty"`
	Outcome  string     `json:"outcome,omitempty"`
	Result   ir.IRValue `json:"result,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// TraceResult holds one run's trace output.
type TraceResult struct {
	RunToken string          `json:"run_token"`
	Timeline []TimelineEvent `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEvents int   `json:"total_events"`
	Sends       int   `json:"sends"`
	Replies     int   `json:"replies"`
	Pending     int   `json:"pending"`
	LastSeq     int64 `json:"last_seq"`
	IsComplete  bool  `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect dispatch traces recorded with --db",
		Long: `Inspect the dispatch traces stored in a SQLite database.

Without --run, lists every recorded run. With --run, prints the run's
timeline: each send with its receiver, resolved function and arguments,
and each reply with its outcome and result. --message narrows either view
to one message name.

--where lists matching sends across every run instead. Conditions take
the form field=value or field>=n and may be repeated; all must hold.
Send fields: kind, receiver, message, function, depth, seq, run_token,
bundle_hash. Reply fields: outcome, error. A reply field keeps only
answered sends.

Examples:
  eigen trace --db ./trace.db
  eigen trace --db ./trace.db --message num
  eigen trace --db ./trace.db --where outcome=missing
  eigen trace --db ./trace.db --where kind=super --where depth>=3
  eigen trace --db ./trace.db --run 0190a5b2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "run token to show")
	cmd.Flags().StringVar(&opts.Message, "message", "", "filter to one message name")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "send condition field=value or field>=n (repeatable)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var sendFilter, replyFilter queryir.Predicate
	if len(opts.Where) > 0 {
		var err error
		sendFilter, replyFilter, err = parseWhere(opts.Where)
		if err != nil {
			_ = f.Error(ErrCodeInvalidArgs, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --where", err)
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if len(opts.Where) > 0 {
		extra := []queryir.Predicate{sendFilter}
		if opts.Message != "" {
			extra = append(extra, queryir.Equals{Field: "message", Value: ir.IRString(opts.Message)})
		}
		if opts.RunToken != "" {
			extra = append(extra, queryir.Equals{Field: "run_token", Value: ir.IRString(opts.RunToken)})
		}
		sends, err := st.FindSends(ctx, queryir.Conjoin(extra...), replyFilter)
		return printSends(f, sends, err, "No sends match the filter.")
	}
	if opts.RunToken == "" {
		if opts.Message != "" {
			sends, err := st.ReadSendsByMessage(ctx, opts.Message)
			return printSends(f, sends, err, fmt.Sprintf("No sends of %s recorded.", opts.Message))
		}
		return listRuns(ctx, f, st)
	}

	state, err := st.GetRunState(ctx, opts.RunToken)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to get run state", err)
	}
	events, err := st.ReadRunEvents(ctx, opts.RunToken)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := TraceResult{
		RunToken: opts.RunToken,
		Timeline: eventsToTimeline(events, opts.Message),
		Stats: TraceStats{
			Sends:      len(state.Sends),
			Replies:    len(state.Replies),
			Pending:    state.PendingCount,
			LastSeq:    state.LastSeq,
			IsComplete: state.IsComplete,
		},
	}
	result.Stats.TotalEvents = len(result.Timeline)

	if opts.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: result})
	}

	w := f.Writer
	if len(events) == 0 {
		fmt.Fprintf(w, "No events found for run: %s\n", opts.RunToken)
		return nil
	}
	fmt.Fprintf(w, "Trace for run: %s\n", f.Style.Bold(result.RunToken))
	fmt.Fprintf(w, "Status: %s\n\n", completeStatus(result.Stats.IsComplete))
	printTimeline(f, result.Timeline)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sends: %d  Replies: %d  Pending: %d\n", result.Stats.Sends, result.Stats.Replies, result.Stats.Pending)
	return nil
}

func listRuns(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}

	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: runs})
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%s  %d send(s)  from seq %d  %s\n",
			r.RunToken, r.Sends, r.FirstSeq, f.Style.Dim("bundle "+truncateID(r.BundleHash)))
	}
	return nil
}

// printSends shows sends from several runs, each prefixed by its run.
func printSends(f *OutputFormatter, sends []ir.Send, err error, empty string) error {
	if err != nil {
		_ = f.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read sends", err)
	}

	timeline := make([]TimelineEvent, 0, len(sends))
	for i := range sends {
		timeline = append(timeline, sendEvent(&sends[i]))
	}
	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: timeline})
	}
	if len(timeline) == 0 {
		fmt.Fprintln(f.Writer, empty)
		return nil
	}
	for i, ev := range timeline {
		fmt.Fprintf(f.Writer, "%s ", f.Style.Dim(truncateID(sends[i].RunToken)))
		printEvent(f, ev)
	}
	return nil
}

// whereFields maps each --where field to the table holding it.
var whereFields = map[string]string{
	"kind":        queryir.TableSends,
	"receiver":    queryir.TableSends,
	"message":     queryir.TableSends,
	"function":    queryir.TableSends,
	"depth":       queryir.TableSends,
	"seq":         queryir.TableSends,
	"run_token":   queryir.TableSends,
	"bundle_hash": queryir.TableSends,
	"outcome":     queryir.TableReplies,
	"error":       queryir.TableReplies,
}

// parseWhere turns --where conditions into a send filter and a reply
// filter. Either may be nil.
func parseWhere(conds []string) (queryir.Predicate, queryir.Predicate, error) {
	var sendPreds, replyPreds []queryir.Predicate
	for _, cond := range conds {
		op := "="
		field, value, ok := strings.Cut(cond, ">=")
		if ok {
			op = ">="
		} else if field, value, ok = strings.Cut(cond, "="); !ok {
			return nil, nil, fmt.Errorf("condition %q: expected field=value or field>=n", cond)
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)

		table, ok := whereFields[field]
		if !ok {
			return nil, nil, fmt.Errorf("condition %q: unknown field %q", cond, field)
		}
		colType, _ := queryir.Column(table, field)

		var pred queryir.Predicate
		switch {
		case colType == queryir.IntColumn:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("condition %q: %s needs an integer", cond, field)
			}
			if op == ">=" {
				pred = queryir.AtLeast{Field: field, Value: ir.IRInt(n)}
			} else {
				pred = queryir.Equals{Field: field, Value: ir.IRInt(n)}
			}
		case op == ">=":
			return nil, nil, fmt.Errorf("condition %q: >= needs an integer field", cond)
		default:
			pred = queryir.Equals{Field: field, Value: ir.IRString(value)}
		}

		if table == queryir.TableReplies {
			replyPreds = append(replyPreds, pred)
		} else {
			sendPreds = append(sendPreds, pred)
		}
	}
	return queryir.Conjoin(sendPreds...), queryir.Conjoin(replyPreds...), nil
}

// eventsToTimeline converts store events. When message is set, only sends
// of that message and the replies answering them are kept.
func eventsToTimeline(events []store.RunEvent, message string) []TimelineEvent {
	timeline := make([]TimelineEvent, 0, len(events))
	kept := make(map[string]*ir.Send)
	for _, ev := range events {
		switch ev.Type {
		case store.EventSend:
			if ev.Send == nil || (message != "" && ev.Send.Message != message) {
				continue
			}
			kept[ev.Send.ID] = ev.Send
			timeline = append(timeline, sendEvent(ev.Send))
		case store.EventReply:
			if ev.Reply == nil {
				continue
			}
			send, ok := kept[ev.Reply.SendID]
			if message != "" && !ok {
				continue
			}
			te := TimelineEvent{
				Seq:     ev.Reply.Seq,
				Type:    ev.Type.String(),
				ID:      ev.Reply.ID,
				Outcome: ev.Reply.Outcome,
				Result:  ev.Reply.Result,
				Error:   ev.Reply.Error,
			}
			if ok {
				te.Kind = send.Kind
				te.Message = send.Message
				te.Depth = send.Depth
			}
			timeline = append(timeline, te)
		}
	}
	return timeline
}

func sendEvent(s *ir.Send) TimelineEvent {
	return TimelineEvent{
		Seq:      s.Seq,
		Type:     store.EventSend.String(),
		ID:       s.ID,
		Kind:     s.Kind,
		Receiver: s.Receiver,
		Message:  s.Message,
		Function: s.Function,
		Args:     s.Args,
		Depth:    s.Depth,
	}
}

func printTimeline(f *OutputFormatter, timeline []TimelineEvent) {
	if len(timeline) == 0 {
		fmt.Fprintln(f.Writer, "  (no events)")
		return
	}
	for _, ev := range timeline {
		printEvent(f, ev)
	}
}

// printEvent writes one line, indented by dispatch depth:
//
//	[3] send #<B:1>.num(2) -> B#num
//	  [4] super #<B:1>.num(2) -> A#num
//	  [5] ok 3
func printEvent(f *OutputFormatter, ev TimelineEvent) {
	indent := strings.Repeat("  ", int(max(ev.Depth-1, 0)))
	if ev.Type == store.EventSend.String() {
		target := f.Style.Fail("(unanswered)")
		if ev.Function != "" {
			target = ev.Function
		}
		fmt.Fprintf(f.Writer, "%s[%d] %s %s.%s(%s) -> %s\n",
			indent, ev.Seq, ev.Kind, ev.Receiver, ev.Message, formatArgs(ev.Args), target)
		if f.Verbose {
			fmt.Fprintf(f.Writer, "%s     %s\n", indent, f.Style.Dim("id "+truncateID(ev.ID)))
		}
		return
	}

	outcome := f.Style.Pass(ev.Outcome)
	if ev.Outcome != "ok" {
		outcome = f.Style.Fail(ev.Outcome)
	}
	detail := formatValue(ev.Result)
	if ev.Error != "" {
		detail = ev.Error
	}
	fmt.Fprintf(f.Writer, "%s[%d] %s %s\n", indent, ev.Seq, outcome, detail)
}

// formatArgs renders arguments as canonical JSON without the brackets.
func formatArgs(args ir.IRArray) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v ir.IRValue) string {
	if v == nil {
		return "null"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func completeStatus(isComplete bool) string {
	if isComplete {
		return "Complete"
	}
	return "Incomplete (pending sends)"
}
