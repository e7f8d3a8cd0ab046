package parser

import (
	"fmt"

	"github.com/dhamidi/accparse/lalr"
)

type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Span struct {
	Start Position
	End   Position
}

// TokenKind doubles as the terminal index in the parsing tables, so the
// order of this block is significant.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenPragmaAcc

	// Operators and punctuation
	TokenNot
	TokenNE
	TokenPercent
	TokenBitAnd
	TokenAnd
	TokenLParen
	TokenRParen
	TokenStar
	TokenPlus
	TokenIncrement
	TokenComma
	TokenMinus
	TokenDecrement
	TokenArrow
	TokenDot
	TokenSlash
	TokenColon
	TokenLT
	TokenShl
	TokenLE
	TokenEQ
	TokenGT
	TokenGE
	TokenShr
	TokenQuestion
	TokenLBracket
	TokenRBracket
	TokenBitXor
	TokenBitOr
	TokenOr
	TokenBitNot

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenFloatLiteral
	TokenCharLiteral
	TokenStringLiteral

	// Keywords
	TokenAsync
	TokenAtomic
	TokenAuto
	TokenBind
	TokenCache
	TokenCapture
	TokenCollapse
	TokenCopy
	TokenCopyin
	TokenCopyout
	TokenCreate
	TokenData
	TokenDeclare
	TokenDefault
	TokenDelete
	TokenDevice
	TokenDeviceResident
	TokenDeviceptr
	TokenEnter
	TokenExit
	TokenFirstprivate
	TokenGang
	TokenHost
	TokenHostData
	TokenIf
	TokenIndependent
	TokenKernels
	TokenLink
	TokenLoop
	TokenMax
	TokenMin
	TokenNohost
	TokenNone
	TokenNumGangs
	TokenNumWorkers
	TokenParallel
	TokenPcopy
	TokenPcopyin
	TokenPcopyout
	TokenPcreate
	TokenPresent
	TokenPresentOrCopy
	TokenPresentOrCopyin
	TokenPresentOrCopyout
	TokenPresentOrCreate
	TokenPrivate
	TokenRead
	TokenReduction
	TokenRoutine
	TokenSelf
	TokenSeq
	TokenSizeof
	TokenTile
	TokenUpdate
	TokenUseDevice
	TokenVector
	TokenVectorLength
	TokenWait
	TokenWorker
	TokenWrite

	numTokenKinds
)

const (
	firstKeyword = TokenAsync
	lastKeyword  = TokenWrite
)

// TokenVerbatim marks text inserted by ReplaceWithText. It is not a
// terminal and never reaches the parser.
const TokenVerbatim TokenKind = -1

var tokenKindNames = map[TokenKind]string{
	TokenEOF:           "EOF",
	TokenPragmaAcc:     "#pragma acc",
	TokenIdent:         "Identifier",
	TokenIntLiteral:    "IntLiteral",
	TokenFloatLiteral:  "FloatLiteral",
	TokenCharLiteral:   "CharLiteral",
	TokenStringLiteral: "StringLiteral",
	TokenNot:           "!",
	TokenNE:            "!=",
	TokenPercent:       "%",
	TokenBitAnd:        "&",
	TokenAnd:           "&&",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenStar:          "*",
	TokenPlus:          "+",
	TokenIncrement:     "++",
	TokenComma:         ",",
	TokenMinus:         "-",
	TokenDecrement:     "--",
	TokenArrow:         "->",
	TokenDot:           ".",
	TokenSlash:         "/",
	TokenColon:         ":",
	TokenLT:            "<",
	TokenShl:           "<<",
	TokenLE:            "<=",
	TokenEQ:            "==",
	TokenGT:            ">",
	TokenGE:            ">=",
	TokenShr:           ">>",
	TokenQuestion:      "?",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenBitXor:        "^",
	TokenBitOr:         "|",
	TokenOr:            "||",
	TokenBitNot:        "~",
	TokenVerbatim:      "Verbatim",
}

func init() {
	for word, kind := range keywords {
		tokenKindNames[kind] = word
	}
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (k TokenKind) IsKeyword() bool {
	return k >= firstKeyword && k <= lastKeyword
}

// Description is the name used for k in syntax errors.
func (k TokenKind) Description() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenPragmaAcc:
		return "#pragma acc"
	case TokenIdent:
		return "identifier"
	case TokenIntLiteral:
		return "integer constant"
	case TokenFloatLiteral:
		return "floating constant"
	case TokenCharLiteral:
		return "character constant"
	case TokenStringLiteral:
		return "string literal"
	}
	return "'" + k.String() + "'"
}

// Token is a lexeme together with the whitespace and comments around it.
// Tokens are the leaves of the syntax tree.
type Token struct {
	Type        TokenKind
	Span        Span
	Literal     string
	WhiteBefore string
	WhiteAfter  string

	parent Node
}

// Terminal implements lalr.Token.
func (t *Token) Terminal() lalr.Terminal { return lalr.Terminal(t.Type) }

// Text implements lalr.Token.
func (t *Token) Text() string {
	if t.Type == TokenEOF {
		return "(end of input)"
	}
	return t.Literal
}

var keywords = map[string]TokenKind{
	"async":              TokenAsync,
	"atomic":             TokenAtomic,
	"auto":               TokenAuto,
	"bind":               TokenBind,
	"cache":              TokenCache,
	"capture":            TokenCapture,
	"collapse":           TokenCollapse,
	"copy":               TokenCopy,
	"copyin":             TokenCopyin,
	"copyout":            TokenCopyout,
	"create":             TokenCreate,
	"data":               TokenData,
	"declare":            TokenDeclare,
	"default":            TokenDefault,
	"delete":             TokenDelete,
	"device":             TokenDevice,
	"device_resident":    TokenDeviceResident,
	"deviceptr":          TokenDeviceptr,
	"enter":              TokenEnter,
	"exit":               TokenExit,
	"firstprivate":       TokenFirstprivate,
	"gang":               TokenGang,
	"host":               TokenHost,
	"host_data":          TokenHostData,
	"if":                 TokenIf,
	"independent":        TokenIndependent,
	"kernels":            TokenKernels,
	"link":               TokenLink,
	"loop":               TokenLoop,
	"max":                TokenMax,
	"min":                TokenMin,
	"nohost":             TokenNohost,
	"none":               TokenNone,
	"num_gangs":          TokenNumGangs,
	"num_workers":        TokenNumWorkers,
	"parallel":           TokenParallel,
	"pcopy":              TokenPcopy,
	"pcopyin":            TokenPcopyin,
	"pcopyout":           TokenPcopyout,
	"pcreate":            TokenPcreate,
	"present":            TokenPresent,
	"present_or_copy":    TokenPresentOrCopy,
	"present_or_copyin":  TokenPresentOrCopyin,
	"present_or_copyout": TokenPresentOrCopyout,
	"present_or_create":  TokenPresentOrCreate,
	"private":            TokenPrivate,
	"read":               TokenRead,
	"reduction":          TokenReduction,
	"routine":            TokenRoutine,
	"self":               TokenSelf,
	"seq":                TokenSeq,
	"sizeof":             TokenSizeof,
	"tile":               TokenTile,
	"update":             TokenUpdate,
	"use_device":         TokenUseDevice,
	"vector":             TokenVector,
	"vector_length":      TokenVectorLength,
	"wait":               TokenWait,
	"worker":             TokenWorker,
	"write":              TokenWrite,
}

func LookupKeyword(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}
