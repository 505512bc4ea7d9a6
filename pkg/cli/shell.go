// Package cli is RustQL's interactive shell driver. spec.md §1 treats "the
// interactive line-oriented shell" and "result-set formatting for human
// display" as external collaborators to the SQL core - this package is
// that collaborator, not a restatement of the core. It reads one statement
// per line (or across several, for a statement that spans lines) and hands
// it to pkg/session, then renders whatever pkg/exec.Result comes back.
//
// Grounded on mjm918-tur/pkg/cli/{shell,repl}.go's split between "read a
// complete statement" (IsComplete's quote/comment-aware semicolon
// scanning) and "execute and display" (REPL.Run's dot-command dispatch,
// ASCII-table rendering); adapted to read through a
// github.com/chzyer/readline instance instead of a bare bufio.Reader for
// history and line editing when stdin is a TTY, exactly as
// firefly-research-flydb/cmd/flydb-shell does, falling back to
// bufio.Scanner the same way that shell does when readline can't attach
// (piped stdin, not a terminal).
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"rustql/pkg/exec"
	"rustql/pkg/session"
	"rustql/pkg/sql/lexer"
)

// Shell drives one interactive session: read a statement, execute it,
// print the result, repeat until end-of-input or a .exit/.quit dot
// command (spec.md §6).
type Shell struct {
	sess   *session.Session
	out    io.Writer
	errOut io.Writer
	prompt string

	rl     *readline.Instance
	sc     *bufio.Scanner
	usedRL bool

	// sawError records whether any statement in the run errored, for the
	// non-interactive exit code spec.md §6 requires.
	sawError bool
}

// New returns a Shell reading from in (a terminal-backed *os.File gets a
// readline.Instance; anything else falls back to a line scanner) and
// writing results to out/errOut.
func New(sess *session.Session, in io.Reader, out, errOut io.Writer, prompt string) *Shell {
	s := &Shell{sess: sess, out: out, errOut: errOut, prompt: prompt}

	if f, ok := in.(fileLike); ok && readline.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:              prompt,
			AutoComplete:        newCompleter(sess),
			InterruptPrompt:     "^C",
			EOFPrompt:           "exit",
			HistorySearchFold:   true,
			FuncFilterInputRune: filterCtrlZ,
		})
		if err == nil {
			s.rl = rl
			s.usedRL = true
			return s
		}
		fmt.Fprintf(errOut, "rustql: line editing unavailable, falling back to plain input: %v\n", err)
	}
	s.sc = bufio.NewScanner(in)
	s.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return s
}

// fileLike is the part of *os.File readline.IsTerminal needs; accepting
// the interface instead of *os.File lets tests pass an os.Pipe end.
type fileLike interface {
	Fd() uintptr
}

func filterCtrlZ(r rune) (rune, bool) {
	if r == readline.CharCtrlZ {
		return r, false
	}
	return r, true
}

// Close releases the underlying readline instance, if one was opened.
func (s *Shell) Close() error {
	if s.rl != nil {
		return s.rl.Close()
	}
	return nil
}

// ErrOccurred reports whether any statement executed in this run errored
// (spec.md §6: "non-zero if any statement errored and the stream was not
// interactive").
func (s *Shell) ErrOccurred() bool { return s.sawError }

// readLine reads one raw line, via readline or the scanner fallback,
// reporting EOF the same way either way.
func (s *Shell) readLine(continuation bool) (line string, eof bool) {
	if s.usedRL {
		if continuation {
			s.rl.SetPrompt(strings.Repeat(" ", len(s.prompt)-3) + "-> ")
		} else {
			s.rl.SetPrompt(s.prompt)
		}
		l, err := s.rl.Readline()
		if err == readline.ErrInterrupt {
			return "", false
		}
		if err == io.EOF {
			return "", true
		}
		if err != nil {
			return "", true
		}
		return l, false
	}
	if !s.sc.Scan() {
		return "", true
	}
	return s.sc.Text(), false
}

// ReadStatement reads lines until a complete statement is assembled (a
// semicolon outside a string literal/comment) or end-of-input, mirroring
// mjm918-tur/pkg/cli/shell.go's ReadStatement/IsComplete but scanning with
// RustQL's own quoting rule: '' escapes a single quote, -- starts a line
// comment, there is no double-quoted identifier form (spec.md §4.1).
func (s *Shell) ReadStatement() (stmt string, eof bool) {
	var lines []string
	first := true
	for {
		line, hitEOF := s.readLine(!first)
		first = false
		if hitEOF && line == "" && len(lines) == 0 {
			return "", true
		}
		lines = append(lines, line)
		combined := strings.Join(lines, "\n")
		if isDotCommand(combined) {
			return strings.TrimSpace(combined), false
		}
		if statementComplete(combined) {
			return combined, false
		}
		if hitEOF {
			return combined, true
		}
	}
}

func isDotCommand(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, ".")
}

// statementComplete reports whether sql contains a semicolon outside a
// string literal or a line comment and does not end inside an open string
// literal. Text after that semicolon does not make it incomplete.
func statementComplete(sql string) bool {
	inString := false
	inComment := false
	lastSemi := -1
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inComment:
			if ch == '\n' {
				inComment = false
			}
		case inString:
			if ch == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
				} else {
					inString = false
				}
			}
		case ch == '\'':
			inString = true
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
		case ch == ';':
			lastSemi = i
		}
	}
	return !inString && lastSemi >= 0
}

// Run is the main loop: read a statement, execute it, print the result,
// until end-of-input or .exit/.quit (spec.md §6).
func (s *Shell) Run() {
	for {
		stmt, eof := s.ReadStatement()
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			if eof {
				return
			}
			continue
		}

		if isDotCommand(trimmed) {
			if s.handleDotCommand(trimmed) {
				return
			}
			if eof {
				return
			}
			continue
		}

		s.execute(trimmed)
		if eof {
			return
		}
	}
}

// handleDotCommand processes .exit/.quit (spec.md §6); any other dot
// command is reported as unrecognized and otherwise ignored, since result
// formatting and REPL ergonomics beyond exit are this package's own
// concern, not the core's.
func (s *Shell) handleDotCommand(cmd string) (exitRequested bool) {
	switch strings.ToLower(strings.Fields(cmd)[0]) {
	case ".exit", ".quit":
		return true
	default:
		fmt.Fprintf(s.errOut, "rustql: unrecognized command %q\n", cmd)
		return false
	}
}

func (s *Shell) execute(stmt string) {
	results, err := s.sess.Execute(stmt)
	if err != nil {
		s.sawError = true
		fmt.Fprintf(s.errOut, "Error: %v\n", err)
	}
	for _, r := range results {
		s.printResult(r)
	}
}

// printResult renders one exec.Result the way spec.md §6 shapes the
// programmatic result stream: a header and rows for SELECT, a
// rows-affected line for DML that changed at least one row, an ok marker
// for DDL/TX and for DML that changed no rows, or the EXPLAIN plan tree.
// The exact tabular layout is this driver's own choice, not a core concern
// (spec.md §1).
func (s *Shell) printResult(r *exec.Result) {
	switch {
	case len(r.PlanLines) > 0:
		for _, l := range r.PlanLines {
			fmt.Fprintln(s.out, l)
		}
	case r.Columns != nil:
		fmt.Fprintln(s.out, strings.Join(r.Columns, "|"))
		for _, row := range r.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = v.String()
			}
			fmt.Fprintln(s.out, strings.Join(cells, "|"))
		}
		fmt.Fprintf(s.out, "(%d row(s))\n", len(r.Rows))
	case r.RowsAffected > 0 || !r.OK:
		fmt.Fprintf(s.out, "rows_affected: %d\n", r.RowsAffected)
	default:
		fmt.Fprintln(s.out, "OK")
	}
}

// newCompleter builds a readline.PrefixCompleter over the reserved
// keyword list (spec.md §4.1) plus the live catalog's table and column
// names, exactly the completion surface SPEC_FULL.md's DOMAIN STACK entry
// for chzyer/readline describes.
func newCompleter(sess *session.Session) *readline.PrefixCompleter {
	kws := lexer.KeywordList()
	items := make([]readline.PrefixCompleterInterface, 0, len(kws)+16)
	for _, kw := range kws {
		items = append(items, readline.PcItem(kw))
	}
	if sess != nil {
		for _, name := range sess.Catalog().ListTables() {
			items = append(items, readline.PcItem(name))
			t := sess.Catalog().GetTable(name)
			if t == nil {
				continue
			}
			for _, c := range t.Columns {
				items = append(items, readline.PcItem(c.Name))
			}
		}
	}
	return readline.NewPrefixCompleter(items...)
}
