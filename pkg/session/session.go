// Package session is RustQL's single connection handle: the layer that
// splits a text stream into statements, dispatches BEGIN/COMMIT/ROLLBACK
// against the catalog's snapshot machinery, and saves to disk the way
// spec.md §3/§4.6 requires ("non-transactional statements persist
// immediately"; a transaction's writes persist only on COMMIT).
//
// Grounded on mjm918-tur/pkg/turdb/db.go's mutex-guarded DB handle and
// tx.go's Begin/Commit/Rollback dispatch; adapted from the teacher's
// per-Tx MVCC snapshot (tx.mvcc) to RustQL's single global
// catalog.Catalog snapshot, since only one transaction may be open at a
// time (spec.md §4.6).
package session

import (
	"fmt"
	"strings"
	"sync"

	"rustql/pkg/catalog"
	"rustql/pkg/exec"
	"rustql/pkg/persist"
	"rustql/pkg/sql/parser"
)

// Session owns one catalog and the file it persists to. All statements
// run through Execute; there is no concurrent-connection model (spec.md
// §5: single-threaded).
type Session struct {
	mu   sync.Mutex
	path string
	cat  *catalog.Catalog
	ex   *exec.Executor
}

// Open loads path into a fresh catalog (an empty one if path doesn't
// exist yet, per spec.md §5) and returns a Session bound to it.
func Open(path string) (*Session, error) {
	cat, err := persist.Load(path)
	if err != nil {
		return nil, err
	}
	return &Session{path: path, cat: cat, ex: exec.New(cat)}, nil
}

// Catalog exposes the underlying catalog, for callers (pkg/cli) that
// want to inspect table/column names for completion.
func (s *Session) Catalog() *catalog.Catalog {
	return s.cat
}

// Execute splits text into statements and runs each in order, stopping
// at the first error (spec.md §7: "errors abort the current statement
// only" - but a later statement in the same Execute call never runs once
// an earlier one in it has failed, since the caller supplied them as one
// unit of input). It returns every result produced before the error, if
// any.
func (s *Session) Execute(text string) ([]*exec.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := splitStatements(text)
	results := make([]*exec.Result, 0, len(stmts))
	for _, stmtText := range stmts {
		if strings.TrimSpace(stmtText) == "" {
			continue
		}
		res, err := s.executeOne(stmtText)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Session) executeOne(stmtText string) (*exec.Result, error) {
	p := parser.New(stmtText)
	stmt, err := p.Parse()
	if err != nil {
		return nil, err
	}

	switch stmt.(type) {
	case *parser.BeginStmt:
		return s.begin()
	case *parser.CommitStmt:
		return s.commit()
	case *parser.RollbackStmt:
		return s.rollback()
	}

	res, err := s.ex.Execute(stmt)
	if err != nil {
		return nil, err
	}
	if !s.cat.InTransaction() {
		if err := persist.Save(s.cat, s.path); err != nil {
			return nil, fmt.Errorf("session: saving %s: %w", s.path, err)
		}
	}
	return res, nil
}

func (s *Session) begin() (*exec.Result, error) {
	if s.cat.InTransaction() {
		return nil, &exec.TransactionStateError{Message: "BEGIN issued while a transaction is already open"}
	}
	if err := s.cat.Begin(); err != nil {
		return nil, err
	}
	return &exec.Result{OK: true}, nil
}

// commit saves to disk before making the transaction's effects
// permanent in the catalog: an IOError rolls the catalog back to its
// pre-commit snapshot and is surfaced to the caller, exactly as spec.md
// §7 requires ("IOError on commit restores the pre-commit snapshot and
// surfaces the error").
func (s *Session) commit() (*exec.Result, error) {
	if !s.cat.InTransaction() {
		return nil, &exec.TransactionStateError{Message: "COMMIT issued outside a transaction"}
	}
	if err := persist.Save(s.cat, s.path); err != nil {
		_ = s.cat.Rollback()
		return nil, fmt.Errorf("session: commit failed, transaction rolled back: %w", err)
	}
	if err := s.cat.Commit(); err != nil {
		return nil, err
	}
	return &exec.Result{OK: true}, nil
}

func (s *Session) rollback() (*exec.Result, error) {
	if !s.cat.InTransaction() {
		return nil, &exec.TransactionStateError{Message: "ROLLBACK issued outside a transaction"}
	}
	if err := s.cat.Rollback(); err != nil {
		return nil, err
	}
	return &exec.Result{OK: true}, nil
}

// splitStatements breaks text on ';' boundaries, treating anything
// inside a single-quoted string literal (with '' as an escaped quote,
// matching pkg/sql/lexer's readString) as not a boundary. A final
// statement with no trailing ';' is included. A '--' line comment
// suppresses splitting until end of line, since a literal ';' inside one
// is not a statement boundary either.
func splitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	inString := false
	inComment := false
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inComment:
			cur.WriteRune(ch)
			if ch == '\n' {
				inComment = false
			}
		case inString:
			cur.WriteRune(ch)
			if ch == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					cur.WriteRune(runes[i+1])
					i++
				} else {
					inString = false
				}
			}
		case ch == '\'':
			inString = true
			cur.WriteRune(ch)
		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			cur.WriteRune(ch)
		case ch == ';':
			stmts = append(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		stmts = append(stmts, cur.String())
	}
	return stmts
}
