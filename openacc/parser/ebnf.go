package parser

import (
	"io"
	"strconv"

	"github.com/dhamidi/accparse/lalr"
)

var lexicalTerminals = map[TokenKind]string{
	TokenIdent:         "identifier",
	TokenIntLiteral:    "integer_constant",
	TokenFloatLiteral:  "floating_constant",
	TokenCharLiteral:   "character_constant",
	TokenStringLiteral: "string_literal",
}

var lexicalProductions = []lalr.LexicalProduction{
	{Name: "identifier", Expr: `letter { letter | decimal_digit }`},
	{Name: "integer_constant", Expr: `decimal_digit { decimal_digit | letter }`},
	{Name: "floating_constant", Expr: `{ decimal_digit } "." decimal_digit { decimal_digit } [ exponent ] [ letter ]`},
	{Name: "exponent", Expr: `( "e" | "E" ) [ "+" | "-" ] decimal_digit { decimal_digit }`},
	{Name: "character_constant", Expr: `[ "L" ] "'" ( letter | decimal_digit | "\\" letter ) "'"`},
	{Name: "string_literal", Expr: `[ "L" ] "\"" { letter | decimal_digit | " " | "\\" letter } "\""`},
	{Name: "letter", Expr: `"a" … "z" | "A" … "Z" | "_"`},
	{Name: "decimal_digit", Expr: `"0" … "9"`},
}

func ebnfTerminal(t lalr.Terminal) string {
	k := TokenKind(t)
	if name, ok := lexicalTerminals[k]; ok {
		return name
	}
	return strconv.Quote(k.String())
}

// WriteEBNF writes the OpenACC grammar in the EBNF notation of
// golang.org/x/exp/ebnf, starting with Construct.
func WriteEBNF(w io.Writer) error {
	g, err := Grammar()
	if err != nil {
		return err
	}
	return lalr.WriteEBNF(w, g, lalr.EBNFOptions{
		Terminal: ebnfTerminal,
		Lexical:  lexicalProductions,
	})
}
