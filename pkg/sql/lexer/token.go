// pkg/sql/lexer/token.go
//
// Grounded on mjm918-tur/pkg/sql/lexer/token.go's TokenType enum and
// keyword table shape, extended with the full reserved-word list spec.md
// §4.1 names (JOIN/GROUP BY/HAVING/EXISTS/LIKE/BETWEEN/transaction and
// DDL-ALTER keywords the teacher's SQLite-flavored grammar didn't need)
// and DATE/TIME/DATETIME/BOOLEAN keywords.
package lexer

// TokenType represents the type of a lexical token
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT
	INT
	FLOAT
	STRING

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	EQ
	NEQ
	LT
	GT
	LTE
	GTE

	// Delimiters
	COMMA
	SEMICOLON
	LPAREN
	RPAREN
	DOT

	// Keywords
	SELECT
	DISTINCT
	FROM
	WHERE
	AND
	OR
	NOT
	IN
	LIKE
	BETWEEN
	IS
	NULL_KW
	ORDER
	BY
	ASC
	DESC
	LIMIT
	OFFSET
	GROUP
	HAVING
	JOIN
	INNER
	LEFT
	RIGHT
	FULL
	OUTER
	ON
	AS
	EXISTS
	CREATE
	DROP
	ALTER
	TABLE
	INDEX
	ADD
	RENAME
	COLUMN
	TO
	INSERT
	INTO
	VALUES
	UPDATE
	SET
	DELETE
	FOREIGN
	KEY
	REFERENCES
	CASCADE
	RESTRICT
	NO
	ACTION
	BEGIN
	COMMIT
	ROLLBACK
	TRANSACTION
	EXPLAIN
	COUNT
	SUM
	AVG
	MIN
	MAX
	INTEGER
	INT_TYPE
	FLOAT_TYPE
	TEXT_TYPE
	BOOLEAN_TYPE
	DATE_TYPE
	TIME_TYPE
	DATETIME_TYPE
	TRUE_KW
	FALSE_KW
	UNIQUE
)

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // position in input
}

var tokenStrings = map[TokenType]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL", IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT",
	STRING: "STRING", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", EQ: "=",
	NEQ: "!=", LT: "<", GT: ">", LTE: "<=", GTE: ">=", COMMA: ",",
	SEMICOLON: ";", LPAREN: "(", RPAREN: ")", DOT: ".",
	SELECT: "SELECT", DISTINCT: "DISTINCT", FROM: "FROM", WHERE: "WHERE",
	AND: "AND", OR: "OR", NOT: "NOT", IN: "IN", LIKE: "LIKE",
	BETWEEN: "BETWEEN", IS: "IS", NULL_KW: "NULL", ORDER: "ORDER", BY: "BY",
	ASC: "ASC", DESC: "DESC", LIMIT: "LIMIT", OFFSET: "OFFSET",
	GROUP: "GROUP", HAVING: "HAVING", JOIN: "JOIN", INNER: "INNER",
	LEFT: "LEFT", RIGHT: "RIGHT", FULL: "FULL", OUTER: "OUTER", ON: "ON",
	AS: "AS", EXISTS: "EXISTS", CREATE: "CREATE", DROP: "DROP",
	ALTER: "ALTER", TABLE: "TABLE", INDEX: "INDEX", ADD: "ADD",
	RENAME: "RENAME", COLUMN: "COLUMN", TO: "TO", INSERT: "INSERT",
	INTO: "INTO", VALUES: "VALUES", UPDATE: "UPDATE", SET: "SET",
	DELETE: "DELETE", FOREIGN: "FOREIGN", KEY: "KEY",
	REFERENCES: "REFERENCES", CASCADE: "CASCADE", RESTRICT: "RESTRICT",
	NO: "NO", ACTION: "ACTION", BEGIN: "BEGIN", COMMIT: "COMMIT",
	ROLLBACK: "ROLLBACK", TRANSACTION: "TRANSACTION", EXPLAIN: "EXPLAIN",
	COUNT: "COUNT", SUM: "SUM", AVG: "AVG", MIN: "MIN", MAX: "MAX",
	INTEGER: "INTEGER", INT_TYPE: "INT", FLOAT_TYPE: "FLOAT",
	TEXT_TYPE: "TEXT", BOOLEAN_TYPE: "BOOLEAN", DATE_TYPE: "DATE",
	TIME_TYPE: "TIME", DATETIME_TYPE: "DATETIME", TRUE_KW: "TRUE",
	FALSE_KW: "FALSE", UNIQUE: "UNIQUE",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if s, ok := tokenStrings[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// keywords maps SQL keywords to their token types. Matching is
// case-insensitive; LookupIdent is always called with an upper-cased
// identifier, per spec.md §4.1's "matched case-insensitively" rule.
var keywords = map[string]TokenType{
	"SELECT": SELECT, "DISTINCT": DISTINCT, "FROM": FROM, "WHERE": WHERE,
	"AND": AND, "OR": OR, "NOT": NOT, "IN": IN, "LIKE": LIKE,
	"BETWEEN": BETWEEN, "IS": IS, "NULL": NULL_KW, "ORDER": ORDER, "BY": BY,
	"ASC": ASC, "DESC": DESC, "LIMIT": LIMIT, "OFFSET": OFFSET,
	"GROUP": GROUP, "HAVING": HAVING, "JOIN": JOIN, "INNER": INNER,
	"LEFT": LEFT, "RIGHT": RIGHT, "FULL": FULL, "OUTER": OUTER, "ON": ON,
	"AS": AS, "EXISTS": EXISTS, "CREATE": CREATE, "DROP": DROP,
	"ALTER": ALTER, "TABLE": TABLE, "INDEX": INDEX, "ADD": ADD,
	"RENAME": RENAME, "COLUMN": COLUMN, "TO": TO, "INSERT": INSERT,
	"INTO": INTO, "VALUES": VALUES, "UPDATE": UPDATE, "SET": SET,
	"DELETE": DELETE, "FOREIGN": FOREIGN, "KEY": KEY,
	"REFERENCES": REFERENCES, "CASCADE": CASCADE, "RESTRICT": RESTRICT,
	"NO": NO, "ACTION": ACTION, "BEGIN": BEGIN, "COMMIT": COMMIT,
	"ROLLBACK": ROLLBACK, "TRANSACTION": TRANSACTION, "EXPLAIN": EXPLAIN,
	"COUNT": COUNT, "SUM": SUM, "AVG": AVG, "MIN": MIN, "MAX": MAX,
	"INTEGER": INTEGER, "INT": INT_TYPE, "FLOAT": FLOAT_TYPE,
	"TEXT": TEXT_TYPE, "BOOLEAN": BOOLEAN_TYPE, "DATE": DATE_TYPE,
	"TIME": TIME_TYPE, "DATETIME": DATETIME_TYPE, "TRUE": TRUE_KW,
	"FALSE": FALSE_KW, "UNIQUE": UNIQUE,
}

// LookupIdent checks if ident is a keyword, returns keyword token type or IDENT
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// KeywordList returns every reserved keyword (spec.md §4.1), for callers
// like pkg/cli that build a completion list rather than a lexer.
func KeywordList() []string {
	out := make([]string, 0, len(keywords))
	for kw := range keywords {
		out = append(out, kw)
	}
	return out
}
