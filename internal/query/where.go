package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

// whereFilter is a compiled where clause bound to a layer schema.
type whereFilter struct {
	root     node
	oidField string
}

// compileWhere parses a SQL-92 style where clause. Field names are checked
// against fields case-insensitively and resolved to their schema spelling.
// An empty clause matches every row.
func compileWhere(clause string, fields []geojson.Field, oidField string) (*whereFilter, error) {
	f := &whereFilter{oidField: oidField}
	if strings.TrimSpace(clause) == "" {
		return f, nil
	}
	toks, err := lex(clause)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, fields: fieldIndex(fields, oidField)}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected %q at position %d", p.peek().text, p.peek().pos)
	}
	f.root = root
	return f, nil
}

func (f *whereFilter) Match(r geojson.Row) bool {
	if f == nil || f.root == nil {
		return true
	}
	return f.root.eval(rowRecord{row: r, oidField: f.oidField})
}

type record interface {
	field(name string) any
}

type rowRecord struct {
	row      geojson.Row
	oidField string
}

func (r rowRecord) field(name string) any {
	if name == r.oidField {
		return float64(r.row.OID)
	}
	return r.row.Properties[name]
}

func fieldIndex(fields []geojson.Field, oidField string) map[string]string {
	idx := make(map[string]string, len(fields)+1)
	idx[strings.ToLower(oidField)] = oidField
	for _, f := range fields {
		idx[strings.ToLower(f.Name)] = f.Name
	}
	return idx
}

// lexer

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokQuotedIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

func lex(s string) ([]token, error) {
	var out []token
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			out = append(out, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '\'':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '\'' {
					if i+1 < len(s) && s[i+1] == '\'' {
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string at position %d", start)
			}
			out = append(out, token{kind: tokString, text: b.String(), pos: start})
		case c == '"':
			start := i
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated identifier at position %d", start)
			}
			out = append(out, token{kind: tokQuotedIdent, text: s[i+1 : i+1+end], pos: start})
			i += end + 2
		case strings.ContainsRune("=<>!", c):
			start := i
			op := string(c)
			if i+1 < len(s) {
				two := s[i : i+2]
				if two == "<=" || two == ">=" || two == "<>" || two == "!=" {
					op = two
				}
			}
			if op == "!" {
				return nil, fmt.Errorf("unexpected '!' at position %d", start)
			}
			out = append(out, token{kind: tokOp, text: op, pos: start})
			i += len(op)
		case unicode.IsDigit(c) || ((c == '-' || c == '.') && i+1 < len(s) && (unicode.IsDigit(rune(s[i+1])) || s[i+1] == '.')):
			start := i
			i++
			for i < len(s) && (unicode.IsDigit(rune(s[i])) || strings.ContainsRune(".eE", rune(s[i])) ||
				((s[i] == '-' || s[i] == '+') && (s[i-1] == 'e' || s[i-1] == 'E'))) {
				i++
			}
			n, err := strconv.ParseFloat(s[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at position %d", s[start:i], start)
			}
			out = append(out, token{kind: tokNumber, text: s[start:i], num: n, pos: start})
		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(s) && (s[i] == '_' || s[i] == '.' || unicode.IsLetter(rune(s[i])) || unicode.IsDigit(rune(s[i]))) {
				i++
			}
			out = append(out, token{kind: tokIdent, text: s[start:i], pos: start})
		default:
			return nil, fmt.Errorf("unexpected %q at position %d", c, i)
		}
	}
	return append(out, token{kind: tokEOF, pos: len(s)}), nil
}

// parser

type parser struct {
	toks   []token
	i      int
	fields map[string]string
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) done() bool { return p.peek().kind == tokEOF }

func (p *parser) keyword(kw string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, kw) {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(k tokKind, what string) error {
	t := p.next()
	if t.kind != k {
		return fmt.Errorf("expected %s at position %d", what, t.pos)
	}
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.keyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parsePredicate()
}

func (p *parser) parsePredicate() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return cmpNode{op: t.text, left: left, right: right}, nil
	}
	if p.keyword("IS") {
		negate := p.keyword("NOT")
		if !p.keyword("NULL") {
			return nil, fmt.Errorf("expected NULL at position %d", p.peek().pos)
		}
		return nullNode{operand: left, negate: negate}, nil
	}
	negate := p.keyword("NOT")
	switch {
	case p.keyword("LIKE"):
		t := p.next()
		if t.kind != tokString {
			return nil, fmt.Errorf("expected pattern string at position %d", t.pos)
		}
		return likeNode{operand: left, re: likePattern(t.text), negate: negate}, nil
	case p.keyword("IN"):
		if err := p.expect(tokLParen, "'('"); err != nil {
			return nil, err
		}
		var list []operand
		for {
			o, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			list = append(list, o)
			if p.peek().kind == tokComma {
				p.next()
				continue
			}
			break
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inNode{operand: left, list: list, negate: negate}, nil
	}
	return nil, fmt.Errorf("expected comparison at position %d", p.peek().pos)
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return literal{v: t.num}, nil
	case tokString:
		return literal{v: t.text}, nil
	case tokIdent, tokQuotedIdent:
		if t.kind == tokIdent {
			switch strings.ToUpper(t.text) {
			case "NULL":
				return literal{v: nil}, nil
			case "TRUE":
				return literal{v: true}, nil
			case "FALSE":
				return literal{v: false}, nil
			}
		}
		name, ok := p.fields[strings.ToLower(t.text)]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", t.text)
		}
		return fieldRef{name: name}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of clause")
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
	}
}

func likePattern(p string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// evaluation

type node interface {
	eval(r record) bool
}

type operand interface {
	value(r record) any
}

type literal struct{ v any }

func (l literal) value(record) any { return l.v }

type fieldRef struct{ name string }

func (f fieldRef) value(r record) any { return r.field(f.name) }

type andNode struct{ l, r node }

func (n andNode) eval(r record) bool { return n.l.eval(r) && n.r.eval(r) }

type orNode struct{ l, r node }

func (n orNode) eval(r record) bool { return n.l.eval(r) || n.r.eval(r) }

type notNode struct{ inner node }

func (n notNode) eval(r record) bool { return !n.inner.eval(r) }

type cmpNode struct {
	op          string
	left, right operand
}

func (n cmpNode) eval(r record) bool {
	c, ok := compare(n.left.value(r), n.right.value(r))
	if !ok {
		return false
	}
	switch n.op {
	case "=":
		return c == 0
	case "<>", "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

type nullNode struct {
	operand operand
	negate  bool
}

func (n nullNode) eval(r record) bool {
	return (n.operand.value(r) == nil) != n.negate
}

type likeNode struct {
	operand operand
	re      *regexp.Regexp
	negate  bool
}

func (n likeNode) eval(r record) bool {
	v := n.operand.value(r)
	if v == nil {
		return false
	}
	return n.re.MatchString(text(v)) != n.negate
}

type inNode struct {
	operand operand
	list    []operand
	negate  bool
}

func (n inNode) eval(r record) bool {
	v := n.operand.value(r)
	if v == nil {
		return false
	}
	for _, o := range n.list {
		if c, ok := compare(v, o.value(r)); ok && c == 0 {
			return !n.negate
		}
	}
	return n.negate
}

// compare orders two attribute values. Numbers compare numerically, also
// against numeric strings; everything else compares as text. Nulls never
// compare.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			}
			return 0, true
		}
	}
	return strings.Compare(text(a), text(b)), true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
