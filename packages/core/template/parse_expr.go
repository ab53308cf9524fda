package template

// Operator precedence, loosest first:
//
//	a if c else b
//	or
//	and
//	not
//	is [not] test
//	== != < <= > >= in, not in
//	+ - ~
//	* / // %
//	unary - +
//	. [] () | filter

// ParseExpression parses a full expression starting at the current token.
func (p *Parser) ParseExpression() (Expr, error) {
	then, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.IsKeyword("if") {
		return then, nil
	}
	tok := p.Next()
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	node := &CondExpr{Position: tok.Pos(), Then: then, Cond: cond}
	if p.IsKeyword("else") {
		p.Next()
		if node.Else, err = p.ParseExpression(); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// ParseCallArgs parses a parenthesised, comma separated argument list.
func (p *Parser) ParseCallArgs() ([]Expr, error) {
	if err := p.ExpectOperator("("); err != nil {
		return nil, err
	}
	var args []Expr
	for !p.IsOperator(")") {
		if len(args) > 0 {
			if err := p.ExpectOperator(","); err != nil {
				return nil, err
			}
			if p.IsOperator(")") {
				break
			}
		}
		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.Next()
	return args, nil
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.IsKeyword("or") {
		tok := p.Next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Pos(), Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.IsKeyword("and") {
		tok := p.Next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Pos(), Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.IsKeyword("not") {
		tok := p.Next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Position: tok.Pos(), Op: "not", X: x}, nil
	}
	return p.parseTest()
}

func (p *Parser) parseTest() (Expr, error) {
	subject, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	if !p.IsKeyword("is") {
		return subject, nil
	}
	tok := p.Next()
	node := &TestExpr{Position: tok.Pos(), Subject: subject}
	if p.IsKeyword("not") {
		p.Next()
		node.Negated = true
	}
	switch {
	case p.cur.Type == TokenName:
		node.Name = p.Next().Value
	case p.cur.Type == TokenOperator && isComparison(p.cur.Value):
		node.Name = p.Next().Value
	default:
		return nil, p.unexpected(p.cur, "a test name")
	}
	switch {
	case p.IsOperator("("):
		if node.Args, err = p.ParseCallArgs(); err != nil {
			return nil, err
		}
	case p.startsOperand():
		arg, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		node.Args = []Expr{arg}
	}
	return node, nil
}

// startsOperand reports whether the current token can begin the single
// bare argument of a test, as in `x is divisibleby 3`.
func (p *Parser) startsOperand() bool {
	switch p.cur.Type {
	case TokenNumber, TokenString:
		return true
	case TokenName:
		switch p.cur.Value {
		case "and", "or", "not", "if", "else", "in", "is":
			return false
		}
		return true
	case TokenOperator:
		return p.cur.Value == "[" || p.cur.Value == "{"
	}
	return false
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (p *Parser) parseCompare() (Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.cur.Type == TokenOperator && isComparison(p.cur.Value):
			op = p.cur.Value
		case p.IsKeyword("in"):
			op = "in"
		case p.IsKeyword("not") && p.peek.Type == TokenName && p.peek.Value == "in":
			op = "not in"
			p.Next()
		default:
			return left, nil
		}
		tok := p.Next()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Pos(), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdd() (Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.IsOperator("+") || p.IsOperator("-") || p.IsOperator("~") {
		tok := p.Next()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Pos(), Op: tok.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.IsOperator("*") || p.IsOperator("/") || p.IsOperator("//") || p.IsOperator("%") {
		tok := p.Next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Position: tok.Pos(), Op: tok.Value, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.IsOperator("-") || p.IsOperator("+") {
		tok := p.Next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*Literal); ok && tok.Value == "-" {
			switch v := lit.Value.(type) {
			case int64:
				return &Literal{Position: tok.Pos(), Value: -v}, nil
			case float64:
				return &Literal{Position: tok.Pos(), Value: -v}, nil
			}
		}
		return &UnaryExpr{Position: tok.Pos(), Op: tok.Value, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.IsOperator("."):
			tok := p.Next()
			switch p.cur.Type {
			case TokenName:
				expr = &AttrExpr{Position: tok.Pos(), Target: expr, Name: p.Next().Value}
			case TokenNumber:
				num := p.Next()
				expr = &IndexExpr{Position: tok.Pos(), Target: expr, Key: &Literal{Position: num.Pos(), Value: num.Literal}}
			default:
				return nil, p.unexpected(p.cur, "an attribute name")
			}
		case p.IsOperator("["):
			tok := p.Next()
			key, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.ExpectOperator("]"); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Position: tok.Pos(), Target: expr, Key: key}
		case p.IsOperator("("):
			tok := p.cur
			args, err := p.ParseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Position: tok.Pos(), Func: expr, Args: args}
		case p.IsOperator("|"):
			p.Next()
			name, err := p.ExpectName()
			if err != nil {
				return nil, p.unexpected(name, "a filter name")
			}
			if p.env != nil {
				if _, ok := p.env.filter(name.Value); !ok {
					return nil, p.Errorf(name, "no filter named '%s'", name.Value)
				}
			}
			node := &FilterExpr{Position: name.Pos(), Target: expr, Name: name.Value}
			if p.IsOperator("(") {
				if node.Args, err = p.ParseCallArgs(); err != nil {
					return nil, err
				}
			}
			expr = node
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur
	switch tok.Type {
	case TokenName:
		p.Next()
		switch tok.Value {
		case "true", "True":
			return &Literal{Position: tok.Pos(), Value: true}, nil
		case "false", "False":
			return &Literal{Position: tok.Pos(), Value: false}, nil
		case "none", "None", "null":
			return &Literal{Position: tok.Pos(), Value: nil}, nil
		}
		return &NameExpr{Position: tok.Pos(), Name: tok.Value}, nil
	case TokenString:
		p.Next()
		s := tok.Value
		for p.cur.Type == TokenString {
			s += p.Next().Value
		}
		return &Literal{Position: tok.Pos(), Value: s}, nil
	case TokenNumber:
		p.Next()
		return &Literal{Position: tok.Pos(), Value: tok.Literal}, nil
	case TokenOperator:
		switch tok.Value {
		case "(":
			p.Next()
			expr, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			return expr, p.ExpectOperator(")")
		case "[":
			return p.parseList()
		case "{":
			return p.parseDict()
		}
	}
	return nil, p.unexpected(tok, "an expression")
}

func (p *Parser) parseList() (Expr, error) {
	tok := p.Next()
	node := &ListExpr{Position: tok.Pos()}
	for !p.IsOperator("]") {
		if len(node.Items) > 0 {
			if err := p.ExpectOperator(","); err != nil {
				return nil, err
			}
			if p.IsOperator("]") {
				break
			}
		}
		item, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)
	}
	p.Next()
	return node, nil
}

func (p *Parser) parseDict() (Expr, error) {
	tok := p.Next()
	node := &DictExpr{Position: tok.Pos()}
	for !p.IsOperator("}") {
		if len(node.Keys) > 0 {
			if err := p.ExpectOperator(","); err != nil {
				return nil, err
			}
			if p.IsOperator("}") {
				break
			}
		}
		key, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.ExpectOperator(":"); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
		node.Values = append(node.Values, value)
	}
	p.Next()
	return node, nil
}
