package template

import (
	"fmt"
	"strings"
)

// TagParser compiles one {% tag ... %} statement. It is called with the
// parser positioned just after the tag name and must consume everything up
// to and including the closing %} of the statement, plus any body.
type TagParser func(p *Parser, start Token) (Node, error)

// Parser turns template source into nodes. Custom tags drive it through
// its exported methods.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
	name  string
	env   *Environment
}

func NewParser(env *Environment, name, src string) *Parser {
	p := &Parser{lexer: NewLexer(src), name: name, env: env}
	p.cur = p.lexer.NextToken()
	p.peek = p.lexer.NextToken()
	return p
}

// Parse compiles the whole source.
func (p *Parser) Parse() (*Template, error) {
	nodes, _, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	return &Template{Name: p.name, Nodes: nodes, env: p.env}, nil
}

func (p *Parser) Environment() *Environment { return p.env }

func (p *Parser) TemplateName() string { return p.name }

func (p *Parser) Current() Token { return p.cur }

// Next advances one token and returns the token it moved past.
func (p *Parser) Next() Token {
	tok := p.cur
	p.cur = p.peek
	if p.peek.Type != TokenEOF {
		p.peek = p.lexer.NextToken()
	}
	return tok
}

// Errorf builds a ParseError located at tok.
func (p *Parser) Errorf(tok Token, format string, args ...any) *ParseError {
	return p.ErrorAt(tok.Pos(), format, args...)
}

// ErrorAt builds a ParseError located at pos, usually an expression's.
func (p *Parser) ErrorAt(pos Position, format string, args ...any) *ParseError {
	return &ParseError{
		Template: p.name,
		Line:     pos.Line,
		Column:   pos.Column,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (p *Parser) unexpected(tok Token, want string) *ParseError {
	if tok.Type == TokenError {
		return p.Errorf(tok, "%s", tok.Value)
	}
	return p.Errorf(tok, "expected %s, got %s", want, tok.describe())
}

func (p *Parser) IsKeyword(kw string) bool {
	return p.cur.Type == TokenName && p.cur.Value == kw
}

func (p *Parser) IsOperator(op string) bool {
	return p.cur.Type == TokenOperator && p.cur.Value == op
}

func (p *Parser) AtTagEnd() bool {
	return p.cur.Type == TokenBlockEnd
}

func (p *Parser) ExpectTagEnd() error {
	if !p.AtTagEnd() {
		return p.unexpected(p.cur, "'%}'")
	}
	p.Next()
	return nil
}

func (p *Parser) ExpectName() (Token, error) {
	if p.cur.Type != TokenName {
		return p.cur, p.unexpected(p.cur, "a name")
	}
	return p.Next(), nil
}

func (p *Parser) ExpectKeyword(kw string) error {
	if !p.IsKeyword(kw) {
		return p.unexpected(p.cur, "'"+kw+"'")
	}
	p.Next()
	return nil
}

func (p *Parser) ExpectOperator(op string) error {
	if !p.IsOperator(op) {
		return p.unexpected(p.cur, "'"+op+"'")
	}
	p.Next()
	return nil
}

// ParseUntil parses nodes until one of the end tags and returns the end
// tag's name token. The parser is left just after the end tag name.
func (p *Parser) ParseUntil(ends ...string) ([]Node, Token, error) {
	return p.parseNodes(ends...)
}

// ParseBlock parses a body closed by end, including the closing %}.
func (p *Parser) ParseBlock(end string) ([]Node, error) {
	nodes, _, err := p.parseNodes(end)
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (p *Parser) parseNodes(ends ...string) ([]Node, Token, error) {
	var nodes []Node
	for {
		tok := p.cur
		switch tok.Type {
		case TokenEOF:
			if len(ends) > 0 {
				return nil, tok, p.Errorf(tok, "unexpected end of template, expected %s", quoteAll(ends))
			}
			return nodes, tok, nil
		case TokenError:
			return nil, tok, p.unexpected(tok, "")
		case TokenText:
			p.Next()
			nodes = append(nodes, &TextNode{Position: tok.Pos(), Text: tok.Value})
		case TokenVarStart:
			p.Next()
			expr, err := p.ParseExpression()
			if err != nil {
				return nil, tok, err
			}
			if p.cur.Type != TokenVarEnd {
				return nil, tok, p.unexpected(p.cur, "'}}'")
			}
			p.Next()
			nodes = append(nodes, &OutputNode{Position: tok.Pos(), Expr: expr})
		case TokenBlockStart:
			p.Next()
			nameTok, err := p.ExpectName()
			if err != nil {
				return nil, tok, p.unexpected(nameTok, "a tag name")
			}
			for _, end := range ends {
				if nameTok.Value == end {
					return nodes, nameTok, nil
				}
			}
			parse, ok := p.tag(nameTok.Value)
			if !ok {
				if len(ends) > 0 {
					return nil, tok, p.Errorf(nameTok, "unknown tag '%s', expected %s", nameTok.Value, quoteAll(ends))
				}
				return nil, tok, p.Errorf(nameTok, "unknown tag '%s'", nameTok.Value)
			}
			node, err := parse(p, nameTok)
			if err != nil {
				return nil, tok, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		default:
			return nil, tok, p.unexpected(tok, "text or a tag")
		}
	}
}

func (p *Parser) tag(name string) (TagParser, bool) {
	if p.env == nil {
		fn, ok := builtinTags[name]
		return fn, ok
	}
	return p.env.tag(name)
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, " or ")
}

var builtinTags map[string]TagParser

func init() {
	builtinTags = map[string]TagParser{
		"if":      parseIf,
		"for":     parseFor,
		"set":     parseSet,
		"include": parseInclude,
	}
}

func parseIf(p *Parser, start Token) (Node, error) {
	node := &IfNode{Position: start.Pos()}
	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	for {
		if err := p.ExpectTagEnd(); err != nil {
			return nil, err
		}
		body, end, err := p.ParseUntil("elif", "else", "endif")
		if err != nil {
			return nil, err
		}
		node.Branches = append(node.Branches, IfBranch{Cond: cond, Body: body})
		switch end.Value {
		case "elif":
			if cond, err = p.ParseExpression(); err != nil {
				return nil, err
			}
			continue
		case "else":
			if err := p.ExpectTagEnd(); err != nil {
				return nil, err
			}
			if node.Else, err = p.ParseBlock("endif"); err != nil {
				return nil, err
			}
			return node, nil
		}
		return node, p.ExpectTagEnd()
	}
}

func parseFor(p *Parser, start Token) (Node, error) {
	node := &ForNode{Position: start.Pos()}
	first, err := p.ExpectName()
	if err != nil {
		return nil, err
	}
	node.Value = first.Value
	if p.IsOperator(",") {
		p.Next()
		second, err := p.ExpectName()
		if err != nil {
			return nil, err
		}
		node.Key, node.Value = first.Value, second.Value
	}
	if err := p.ExpectKeyword("in"); err != nil {
		return nil, err
	}
	if node.Iter, err = p.ParseExpression(); err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, end, err := p.ParseUntil("else", "endfor")
	if err != nil {
		return nil, err
	}
	node.Body = body
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	if end.Value == "else" {
		if node.Else, err = p.ParseBlock("endfor"); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func parseSet(p *Parser, start Token) (Node, error) {
	name, err := p.ExpectName()
	if err != nil {
		return nil, err
	}
	node := &SetNode{Position: start.Pos(), Name: name.Value}
	if p.IsOperator("=") {
		p.Next()
		if node.Expr, err = p.ParseExpression(); err != nil {
			return nil, err
		}
		return node, p.ExpectTagEnd()
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	if node.Body, err = p.ParseBlock("endset"); err != nil {
		return nil, err
	}
	return node, nil
}

func parseInclude(p *Parser, start Token) (Node, error) {
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	return &IncludeNode{Position: start.Pos(), Template: expr}, p.ExpectTagEnd()
}
