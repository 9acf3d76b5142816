package optable

// builtinTokens is the tokenizer's token -> name table.
var builtinTokens = map[string]string{
	".":    "DOT",
	",":    "COMMA",
	":":    "COLON",
	"?":    "HOOK",
	";":    "SEMICOLON",
	"!":    "NOT",
	"~":    "BITNOT",
	"\\":   "BACKSLASH",
	"+":    "ADD",
	"-":    "SUB",
	"*":    "MUL",
	"/":    "DIV",
	"%":    "MOD",
	"{":    "LC",
	"}":    "RC",
	"(":    "LP",
	")":    "RP",
	"[":    "LB",
	"]":    "RB",
	"<":    "LT",
	"<=":   "LE",
	">":    "GT",
	">=":   "GE",
	"==":   "EQ",
	"!=":   "NE",
	"===":  "SHEQ",
	"!==":  "SHNE",
	"=":    "ASSIGN",
	"+=":   "ASSIGN_ADD",
	"-=":   "ASSIGN_SUB",
	"*=":   "ASSIGN_MUL",
	"/=":   "ASSIGN_DIV",
	"%=":   "ASSIGN_MOD",
	"|=":   "ASSIGN_BITOR",
	"^=":   "ASSIGN_BITXOR",
	"&=":   "ASSIGN_BITAND",
	"<<=":  "ASSIGN_LSH",
	">>=":  "ASSIGN_RSH",
	">>>=": "ASSIGN_URSH",
	"&&":   "AND",
	"||":   "OR",
	"|":    "BITOR",
	"^":    "BITXOR",
	"&":    "BITAND",
	"<<":   "LSH",
	">>":   "RSH",
	">>>":  "URSH",
	"++":   "INC",
	"--":   "DEC",

	// operator keywords
	"typeof":     "TYPEOF",
	"instanceof": "INSTANCEOF",
	"in":         "IN",
	"delete":     "DELETE",
	"void":       "VOID",
	"new":        "NEW",
}

// builtinAliases are extra names some tree producers use.
var builtinAliases = map[string]string{
	"PLUS":  "+",
	"MINUS": "-",
}

// Default returns a fresh table with the built-in tokens.
func Default() *Table {
	t, err := FromTokens(builtinTokens)
	if err != nil {
		panic(err)
	}
	for name, tok := range builtinAliases {
		t.Set(name, tok)
	}
	return t
}
