package calculation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var ErrFormulaEvaluation = errors.New("formula evaluation failed")

// Evaluate computes an arithmetic formula over numbers, variables, + - * /,
// unary signs and parentheses. Identifiers are matched as whole tokens against
// variables. Characters outside the grammar are dropped first. Division by
// zero yields 0.
func Evaluate(expression string, variables map[string]float64) (float64, error) {
	if variables == nil {
		variables = map[string]float64{}
	}
	return evaluate(expression, variables)
}

// ParseFormula checks formula syntax without binding variables.
func ParseFormula(expression string) error {
	_, err := evaluate(expression, nil)
	return err
}

// FormulaVariables lists the identifiers a formula references, in first use
// order.
func FormulaVariables(expression string) ([]string, error) {
	tokens, err := tokenize(sanitize(expression))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFormulaEvaluation, expression, err)
	}
	seen := map[string]bool{}
	var names []string
	for _, tok := range tokens {
		if tok.kind == tokIdent && !seen[tok.text] {
			seen[tok.text] = true
			names = append(names, tok.text)
		}
	}
	return names, nil
}

// VariableName is the identifier a dependency name is bound to inside a
// formula: lower-cased, whitespace runs replaced by "_".
func VariableName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

func evaluate(expression string, variables map[string]float64) (float64, error) {
	tokens, err := tokenize(sanitize(expression))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrFormulaEvaluation, expression, err)
	}

	p := &parser{tokens: tokens, vars: variables}
	v, err := p.parseExpr()
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrFormulaEvaluation, expression, err)
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return 0, fmt.Errorf("%w: %q: unexpected %q", ErrFormulaEvaluation, expression, tok.text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q: result is not finite", ErrFormulaEvaluation, expression)
	}
	return v, nil
}

func sanitize(expression string) string {
	var b strings.Builder
	b.Grow(len(expression))
	for _, r := range expression {
		if isIdentRune(r) || unicode.IsSpace(r) || strings.ContainsRune("+-*/().", r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func tokenize(s string) ([]token, error) {
	var tokens []token
	runes := []rune(s)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, num: n})
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i])})
		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		default:
			tokens = append(tokens, token{kind: tokOp, text: string(r)})
			i++
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	return tokens, nil
}

// parser is a recursive descent evaluator:
//
//	expr  = term { ("+" | "-") term }
//	term  = unary { ("*" | "/") unary }
//	unary = ("+" | "-") unary | primary
//	primary = number | ident | "(" expr ")"
//
// With vars == nil identifiers evaluate to 0 (syntax check only).
type parser struct {
	tokens []token
	pos    int
	vars   map[string]float64
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.peek()
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		switch {
		case tok.text == "*":
			left *= right
		case right == 0:
			left = 0
		default:
			left /= right
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	tok := p.peek()
	if tok.kind == tokOp && (tok.text == "+" || tok.text == "-") {
		p.next()
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if tok.text == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return tok.num, nil
	case tokIdent:
		if p.vars == nil {
			return 0, nil
		}
		v, ok := p.vars[tok.text]
		if !ok {
			return 0, fmt.Errorf("unknown variable %q", tok.text)
		}
		return v, nil
	case tokLParen:
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return 0, errors.New("missing closing parenthesis")
		}
		return v, nil
	case tokEOF:
		return 0, errors.New("unexpected end of expression")
	default:
		return 0, fmt.Errorf("unexpected %q", tok.text)
	}
}
