package lexer

import "testing"

func tokenize(t *testing.T, input string) []Token {
	t.Helper()
	l := New(input)
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestLexer_SimpleTokens(t *testing.T) {
	toks := tokenize(t, "+-*/= < > (),;.")
	want := []TokenType{PLUS, MINUS, STAR, SLASH, EQ, LT, GT, LPAREN, RPAREN, COMMA, SEMICOLON, DOT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token[%d] = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexer_ComparisonOperators(t *testing.T) {
	toks := tokenize(t, "= != <> < > <= >=")
	want := []TokenType{EQ, NEQ, NEQ, LT, GT, LTE, GTE, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token[%d] = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexer_KeywordsCaseInsensitive(t *testing.T) {
	for _, input := range []string{"SELECT", "select", "Select", "sElEcT"} {
		toks := tokenize(t, input)
		if toks[0].Type != SELECT {
			t.Errorf("%q: got %v, want SELECT", input, toks[0].Type)
		}
	}
}

func TestLexer_Identifiers(t *testing.T) {
	toks := tokenize(t, "my_table col1 _underscore")
	want := []string{"my_table", "col1", "_underscore"}
	for i, w := range want {
		if toks[i].Type != IDENT || toks[i].Literal != w {
			t.Errorf("token[%d] = %v %q, want IDENT %q", i, toks[i].Type, toks[i].Literal, w)
		}
	}
}

func TestLexer_IntegerAndFloat(t *testing.T) {
	toks := tokenize(t, "123 3.14 .5 1e10 2.5e-3")
	want := []struct {
		typ TokenType
		lit string
	}{
		{INT, "123"},
		{FLOAT, "3.14"},
		{FLOAT, ".5"},
		{FLOAT, "1e10"},
		{FLOAT, "2.5e-3"},
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("token[%d] = %v %q, want %v %q", i, toks[i].Type, toks[i].Literal, w.typ, w.lit)
		}
	}
}

func TestLexer_StringLiteralWithEscapedQuote(t *testing.T) {
	toks := tokenize(t, "'it''s a test'")
	if toks[0].Type != STRING {
		t.Fatalf("got %v, want STRING", toks[0].Type)
	}
	if toks[0].Literal != "it's a test" {
		t.Errorf("got %q, want %q", toks[0].Literal, "it's a test")
	}
}

func TestLexer_UnterminatedStringIsError(t *testing.T) {
	l := New("'unterminated")
	_, err := l.NextToken()
	if err == nil {
		t.Fatal("expected LexError, got nil")
	}
	if _, ok := err.(*LexError); !ok {
		t.Errorf("expected *LexError, got %T", err)
	}
}

func TestLexer_UnknownCharacterIsError(t *testing.T) {
	l := New("@")
	_, err := l.NextToken()
	if err == nil {
		t.Fatal("expected LexError, got nil")
	}
}

func TestLexer_CommentsAreSkipped(t *testing.T) {
	toks := tokenize(t, "SELECT 1 -- this is a comment\nFROM t")
	want := []TokenType{SELECT, INT, FROM, IDENT, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token[%d] = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexer_ReservedWordsFullSet(t *testing.T) {
	words := []string{
		"SELECT", "DISTINCT", "FROM", "WHERE", "AND", "OR", "NOT", "IN",
		"LIKE", "BETWEEN", "IS", "NULL", "ORDER", "BY", "ASC", "DESC",
		"LIMIT", "OFFSET", "GROUP", "HAVING", "JOIN", "INNER", "LEFT",
		"RIGHT", "FULL", "OUTER", "ON", "AS", "EXISTS", "CREATE", "DROP",
		"ALTER", "TABLE", "INDEX", "ADD", "RENAME", "COLUMN", "TO",
		"INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "FOREIGN",
		"KEY", "REFERENCES", "CASCADE", "RESTRICT", "NO", "ACTION",
		"BEGIN", "COMMIT", "ROLLBACK", "TRANSACTION", "EXPLAIN", "COUNT",
		"SUM", "AVG", "MIN", "MAX", "INTEGER", "INT", "FLOAT", "TEXT",
		"BOOLEAN", "DATE", "TIME", "DATETIME", "TRUE", "FALSE",
	}
	for _, w := range words {
		if LookupIdent(w) == IDENT {
			t.Errorf("%q should lex as a keyword, not an identifier", w)
		}
	}
}
