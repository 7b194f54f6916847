// Package formula evaluates the arithmetic expressions attached to computed
// number fields.
//
// Supported syntax: numeric literals, field references (runs of letters,
// digits and underscores), the operators + - * / and parentheses. Unary
// plus and minus are allowed. Evaluation never fails: division by zero,
// malformed input and non-numeric references all yield NaN, which then
// propagates through the whole expression. Use ValidateSyntax to surface a
// human-readable reason before a formula is accepted.
package formula

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expr is a compiled formula.
type Expr struct {
	source string
	root   node
	deps   []string
}

// Parse compiles a formula. Errors unwrap to ErrEmptyFormula,
// ErrUnexpectedCharacter, ErrUnbalancedParens or ErrSyntax.
func Parse(formula string) (*Expr, error) {
	trimmed := strings.TrimSpace(formula)
	if trimmed == "" {
		return nil, newError(ErrEmptyFormula, "")
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseExpr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		tok := stream.tokens[stream.pos]
		if tok.kind == tokenRParen {
			return nil, newError(ErrUnbalancedParens, "unexpected ')'")
		}
		return nil, newError(ErrSyntax, fmt.Sprintf("unexpected token %q", tok.raw))
	}
	return &Expr{source: trimmed, root: root, deps: ParseDependencies(trimmed)}, nil
}

// String returns the trimmed source.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Dependencies returns the field references in first-seen order.
func (e *Expr) Dependencies() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.deps...)
}

// Eval computes the expression against values keyed by field id or
// fieldName.
func (e *Expr) Eval(values map[string]any) float64 {
	if e == nil || e.root == nil {
		return math.NaN()
	}
	return e.root.eval(values)
}

// Evaluate parses and evaluates formula in one step. Any parse failure
// yields NaN.
func Evaluate(formula string, values map[string]any) float64 {
	expr, err := Parse(formula)
	if err != nil {
		return math.NaN()
	}
	return expr.Eval(values)
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '+':
			tokens = append(tokens, token{kind: tokenPlus, raw: "+", pos: i})
			i++
			continue
		case '-':
			tokens = append(tokens, token{kind: tokenMinus, raw: "-", pos: i})
			i++
			continue
		case '*':
			tokens = append(tokens, token{kind: tokenStar, raw: "*", pos: i})
			i++
			continue
		case '/':
			tokens = append(tokens, token{kind: tokenSlash, raw: "/", pos: i})
			i++
			continue
		case '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "(", pos: i})
			i++
			continue
		case ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")", pos: i})
			i++
			continue
		}

		if ch == '.' || isWordChar(ch) {
			start := i
			for i < len(input) && isWordChar(input[i]) {
				i++
			}
			// a decimal point continues a numeric run: 1.5, .5
			if i < len(input) && input[i] == '.' && isDigits(input[start:i]) {
				i++
				for i < len(input) && isDigit(input[i]) {
					i++
				}
			}
			raw := input[start:i]
			switch {
			case isNumberLiteral(raw):
				tokens = append(tokens, token{kind: tokenNumber, raw: raw, pos: start})
			case strings.Contains(raw, "."):
				return nil, newError(ErrUnexpectedCharacter, fmt.Sprintf("malformed number %q at position %d", raw, start))
			default:
				tokens = append(tokens, token{kind: tokenIdent, raw: raw, pos: start})
			}
			continue
		}

		return nil, newError(ErrUnexpectedCharacter, fmt.Sprintf("unexpected character %q at position %d", string(ch), i))
	}
	return tokens, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordChar(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigits(raw string) bool {
	for i := 0; i < len(raw); i++ {
		if !isDigit(raw[i]) {
			return false
		}
	}
	return true
}

// isNumberLiteral accepts plain decimal literals only, so identifiers such
// as "inf" or "1e5" are never mistaken for numbers.
func isNumberLiteral(raw string) bool {
	if raw == "" || raw == "." {
		return false
	}
	intPart, fracPart, hasDot := strings.Cut(raw, ".")
	if !isDigits(intPart) || !isDigits(fracPart) {
		return false
	}
	if hasDot {
		return intPart != "" || fracPart != ""
	}
	return intPart != ""
}

type node interface {
	eval(values map[string]any) float64
}

type numberNode struct {
	value float64
}

func (n numberNode) eval(map[string]any) float64 { return n.value }

type refNode struct {
	name string
}

func (n refNode) eval(values map[string]any) float64 {
	return resolve(values, n.name)
}

type unaryNode struct {
	negate bool
	inner  node
}

func (n unaryNode) eval(values map[string]any) float64 {
	v := n.inner.eval(values)
	if n.negate {
		return -v
	}
	return v
}

type binaryNode struct {
	op    tokenKind
	left  node
	right node
}

func (n binaryNode) eval(values map[string]any) float64 {
	l := n.left.eval(values)
	r := n.right.eval(values)
	switch n.op {
	case tokenPlus:
		return l + r
	case tokenMinus:
		return l - r
	case tokenStar:
		return l * r
	case tokenSlash:
		if r == 0 {
			return math.NaN()
		}
		return l / r
	}
	return math.NaN()
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpr(stream *tokenStream) (node, error) {
	left, err := parseTerm(stream)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := stream.peek()
		if !ok || (tok.kind != tokenPlus && tok.kind != tokenMinus) {
			return left, nil
		}
		stream.pos++
		right, err := parseTerm(stream)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func parseTerm(stream *tokenStream) (node, error) {
	left, err := parseFactor(stream)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := stream.peek()
		if !ok || (tok.kind != tokenStar && tok.kind != tokenSlash) {
			return left, nil
		}
		stream.pos++
		right, err := parseFactor(stream)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.kind, left: left, right: right}
	}
}

func parseFactor(stream *tokenStream) (node, error) {
	tok, ok := stream.peek()
	if !ok {
		return nil, newError(ErrSyntax, "unexpected end of formula")
	}
	stream.pos++

	switch tok.kind {
	case tokenNumber:
		value, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, newError(ErrSyntax, fmt.Sprintf("invalid number %q", tok.raw))
		}
		return numberNode{value: value}, nil
	case tokenIdent:
		return refNode{name: tok.raw}, nil
	case tokenMinus, tokenPlus:
		inner, err := parseFactor(stream)
		if err != nil {
			return nil, err
		}
		return unaryNode{negate: tok.kind == tokenMinus, inner: inner}, nil
	case tokenLParen:
		inner, err := parseExpr(stream)
		if err != nil {
			return nil, err
		}
		closing, ok := stream.peek()
		if !ok || closing.kind != tokenRParen {
			return nil, newError(ErrUnbalancedParens, "missing closing ')'")
		}
		stream.pos++
		return inner, nil
	case tokenRParen:
		return nil, newError(ErrUnbalancedParens, "unexpected ')'")
	default:
		return nil, newError(ErrSyntax, fmt.Sprintf("unexpected operator %q at position %d", tok.raw, tok.pos))
	}
}

func (s *tokenStream) peek() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	return s.tokens[s.pos], true
}

// resolve reads a reference. Missing, nil and blank values count as zero;
// anything that is present but not numeric is NaN.
func resolve(values map[string]any, key string) float64 {
	if len(values) == 0 {
		return 0
	}
	value, ok := values[key]
	if !ok || value == nil {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
