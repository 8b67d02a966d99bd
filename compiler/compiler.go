// Package compiler implements the single-pass Pratt parser that turns a
// token stream directly into bytecode, with no intermediate syntax tree.
// Each token type maps to a parse rule with an optional prefix handler, an
// optional infix handler, and a binding precedence; parsing at a given
// precedence floor consumes one prefix and then as many qualifying infixes
// as follow.
package compiler

import (
	"fmt"
	"strconv"

	"thusly/lexer"
	"thusly/token"
	"thusly/value"
)

// Precedence levels, lowest to highest. Parsing at precedence P consumes
// infix operators whose own precedence is >= P; a right-hand operand is
// parsed at one level higher than its operator to make ordinary binaries
// left-associative.
const (
	PREC_NONE       = iota // ignored: statement boundaries, closing delimiters
	PREC_ASSIGNMENT        // : +: -: *: /:
	PREC_OR                // or
	PREC_AND               // and
	PREC_EQUALITY          // = !=
	PREC_COMPARISON        // < <= > >=
	PREC_TERM              // + -
	PREC_FACTOR            // * / mod
	PREC_UNARY             // unary - and not
)

// ParseFunc is a prefix or infix parsing handler for one token type.
// canAssign reports whether the expression being parsed started at or below
// assignment precedence, the only condition under which an assignment
// operator following an identifier is legal.
type ParseFunc func(*Compiler, bool)

type parseRule struct {
	prefix     ParseFunc
	infix      ParseFunc
	precedence int
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.OPEN_PAREN:          {prefix: (*Compiler).grouping},
		token.MINUS:               {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PREC_TERM},
		token.PLUS:                {infix: (*Compiler).binary, precedence: PREC_TERM},
		token.STAR:                {infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.SLASH:               {infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.MOD:                 {infix: (*Compiler).binary, precedence: PREC_FACTOR},
		token.EQUALS:              {infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.EXCLAMATION_EQUALS:  {infix: (*Compiler).binary, precedence: PREC_EQUALITY},
		token.LESS_THAN:           {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.LESS_THAN_EQUALS:    {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.GREATER_THAN:        {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.GREATER_THAN_EQUALS: {infix: (*Compiler).binary, precedence: PREC_COMPARISON},
		token.AND:                 {infix: (*Compiler).and_, precedence: PREC_AND},
		token.OR:                  {infix: (*Compiler).or_, precedence: PREC_OR},
		token.NOT:                 {prefix: (*Compiler).unary},
		token.NUMBER:              {prefix: (*Compiler).number},
		token.TEXT:                {prefix: (*Compiler).text},
		token.TRUE:                {prefix: (*Compiler).literal},
		token.FALSE:               {prefix: (*Compiler).literal},
		token.NONE:                {prefix: (*Compiler).literal},
		token.IDENTIFIER:          {prefix: (*Compiler).variableRef},
	}
}

func getRule(t token.Type) parseRule {
	return rules[t]
}

var assignmentOperators = map[token.Type]bool{
	token.COLON:       true,
	token.PLUS_COLON:  true,
	token.MINUS_COLON: true,
	token.STAR_COLON:  true,
	token.SLASH_COLON: true,
}

const uninitializedDepth = -1

type localVariable struct {
	name  string
	depth int
}

// Compiler consumes a token stream and emits bytecode into a Program,
// tracking lexical scope and variable slots as it goes. Text literals and
// concatenation results are interned through env, the same Environment the
// VM will later read text values from.
type Compiler struct {
	lex     *lexer.Lexer
	env     *value.Environment
	program *Program

	previous token.Token
	current  token.Token

	variables  []localVariable
	scopeDepth int

	panicMode bool
	errors    []error
}

// Compile tokenizes and compiles source in one pass. It always returns a
// non-nil Program, but the Program must be discarded if any errors are
// returned: compilation continues past an error (to surface more than one
// at a time) without guaranteeing the remaining bytecode is sound.
func Compile(source string, env *value.Environment) (*Program, []error) {
	c := &Compiler{
		lex:     lexer.New(source),
		env:     env,
		program: NewProgram(),
	}
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.endCompilation()
	return c.program, c.errors
}

func (c *Compiler) endCompilation() {
	c.program.EmitOp(OP_RETURN, c.previous.Line)
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lex.Next()
		if c.current.Type != token.LEXICAL_ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.current.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// consumeEndOfStatement requires a newline or EOF to close the current
// statement, tolerating EOF so the last line of a file need not end in \n.
func (c *Compiler) consumeEndOfStatement() {
	if c.match(token.NEWLINE) {
		return
	}
	if c.check(token.EOF) {
		return
	}
	c.errorAtCurrent("Expected a newline after the statement.")
}

func (c *Compiler) consumeNewline(message string) {
	if c.match(token.NEWLINE) {
		return
	}
	if c.check(token.EOF) {
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ---

func (c *Compiler) whereFor(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "At the end of the file."
	case token.NEWLINE:
		return "At the end of the line."
	default:
		return fmt.Sprintf("At '%s'.", tok.Lexeme)
	}
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errors = append(c.errors, CompileError{
		Line:    tok.Line,
		Where:   c.whereFor(tok),
		Message: message,
	})
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) errorAtPrevious(message string) {
	c.errorAt(c.previous, message)
}

// synchronize discards tokens until a plausible statement boundary, so one
// mistake doesn't cascade into a wall of follow-on diagnostics.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.NEWLINE {
			return
		}
		switch c.current.Type {
		case token.VAR, token.OUT, token.IF, token.BLOCK, token.FOREACH, token.WHILE, token.END:
			return
		}
		c.advance()
	}
}

// --- scope and variable bookkeeping ---

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// discardScope pops every variable declared in the scope being left,
// collapsing the pops into a single OP_POP or OP_POPN, then drops the
// scope's depth.
func (c *Compiler) discardScope(line int) {
	count := 0
	for len(c.variables) > 0 && c.variables[len(c.variables)-1].depth == c.scopeDepth {
		c.variables = c.variables[:len(c.variables)-1]
		count++
	}
	switch {
	case count == 1:
		c.program.EmitOp(OP_POP, line)
	case count > 1:
		c.program.EmitOpByte(OP_POPN, byte(count-1), line)
	}
	c.scopeDepth--
}

func (c *Compiler) addVariable(nameTok token.Token) (int, bool) {
	if len(c.variables) >= VariablesMax {
		c.errorAt(nameTok, "Too many variables are currently in scope.")
		return 0, false
	}
	c.variables = append(c.variables, localVariable{name: nameTok.Lexeme, depth: uninitializedDepth})
	return len(c.variables) - 1, true
}

// declareVariable registers nameTok as a new variable in the current scope,
// rejecting a same-name redeclaration within that same scope. The scan
// stops as soon as it reaches a variable that belongs to an outer scope.
func (c *Compiler) declareVariable(nameTok token.Token) (int, bool) {
	for i := len(c.variables) - 1; i >= 0; i-- {
		v := c.variables[i]
		if v.depth != uninitializedDepth && v.depth < c.scopeDepth {
			break
		}
		if v.name == nameTok.Lexeme {
			c.errorAt(nameTok, "A variable with this name already exists in this scope.")
			return 0, false
		}
	}
	return c.addVariable(nameTok)
}

// resolveVariable finds nameTok's stack slot by scanning declared variables
// from the innermost scope outward.
func (c *Compiler) resolveVariable(nameTok token.Token) (int, error) {
	for i := len(c.variables) - 1; i >= 0; i-- {
		v := c.variables[i]
		if v.name != nameTok.Lexeme {
			continue
		}
		if v.depth == uninitializedDepth {
			return 0, fmt.Errorf("You cannot use the variable's name being declared in its initializer.")
		}
		return i, nil
	}
	return 0, fmt.Errorf("Undeclared variable '%s'.", nameTok.Lexeme)
}

// --- expression parsing ---

func (c *Compiler) expression() {
	c.parsePrecedence(PREC_ASSIGNMENT)
}

func (c *Compiler) parsePrecedence(minPrecedence int) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("Expected an expression.")
		return
	}

	canAssign := assignmentOperators[c.current.Type] && minPrecedence <= PREC_ASSIGNMENT
	prefix(c, canAssign)

	for minPrecedence <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && assignmentOperators[c.current.Type] {
		c.errorAtCurrent("Invalid assignment target.")
	}
}

func (c *Compiler) emitConstant(v value.Value) {
	line := c.previous.Line
	idx, ok := c.program.AddConstant(v)
	if !ok {
		c.errorAtPrevious("Too many constants in one program.")
		return
	}
	c.program.EmitOpByte(OP_CONSTANT, byte(idx), line)
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.errorAtPrevious("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) text(canAssign bool) {
	raw := c.previous.Lexeme
	content := raw[1 : len(raw)-1]
	obj := c.env.InternString(content)
	c.emitConstant(value.HeapRef(obj))
}

func (c *Compiler) literal(canAssign bool) {
	line := c.previous.Line
	switch c.previous.Type {
	case token.TRUE:
		c.program.EmitOp(OP_CONSTANT_TRUE, line)
	case token.FALSE:
		c.program.EmitOp(OP_CONSTANT_FALSE, line)
	case token.NONE:
		c.program.EmitOp(OP_CONSTANT_NONE, line)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.CLOSE_PAREN, "Expected ')' after the expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	line := c.previous.Line
	c.parsePrecedence(PREC_UNARY)
	switch opType {
	case token.MINUS:
		c.program.EmitOp(OP_NEGATE, line)
	case token.NOT:
		c.program.EmitOp(OP_NOT, line)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	line := c.previous.Line
	rule := getRule(opType)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.PLUS:
		c.program.EmitOp(OP_ADD, line)
	case token.MINUS:
		c.program.EmitOp(OP_SUBTRACT, line)
	case token.STAR:
		c.program.EmitOp(OP_MULTIPLY, line)
	case token.SLASH:
		c.program.EmitOp(OP_DIVIDE, line)
	case token.MOD:
		c.program.EmitOp(OP_MODULO, line)
	case token.EQUALS:
		c.program.EmitOp(OP_EQUALS, line)
	case token.EXCLAMATION_EQUALS:
		c.program.EmitOp(OP_NOT_EQUALS, line)
	case token.LESS_THAN:
		c.program.EmitOp(OP_LESS_THAN, line)
	case token.LESS_THAN_EQUALS:
		c.program.EmitOp(OP_LESS_THAN_EQUALS, line)
	case token.GREATER_THAN:
		c.program.EmitOp(OP_GREATER_THAN, line)
	case token.GREATER_THAN_EQUALS:
		c.program.EmitOp(OP_GREATER_THAN_EQUALS, line)
	}
}

// and_ and or_ short-circuit: the left operand is left on the stack when it
// already determines the result, skipping evaluation of the right operand.
func (c *Compiler) and_(canAssign bool) {
	line := c.previous.Line
	endJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_FALSE, line)
	c.program.EmitOp(OP_POP, line)
	c.parsePrecedence(PREC_AND + 1)
	if _, ok := c.program.PatchJumpForward(endJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
}

func (c *Compiler) or_(canAssign bool) {
	line := c.previous.Line
	endJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_TRUE, line)
	c.program.EmitOp(OP_POP, line)
	c.parsePrecedence(PREC_OR + 1)
	if _, ok := c.program.PatchJumpForward(endJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
}

func (c *Compiler) variableRef(canAssign bool) {
	nameTok := c.previous
	line := nameTok.Line
	slot, err := c.resolveVariable(nameTok)
	if err != nil {
		c.errorAtPrevious(err.Error())
		return
	}
	if canAssign && assignmentOperators[c.current.Type] {
		c.assignVariable(slot, line)
		return
	}
	c.program.EmitOpByte(OP_GET_VAR, byte(slot), line)
}

// assignVariable compiles the right-hand side of an assignment or augmented
// assignment and always leaves the assigned value on the stack, since
// assignment is an expression here.
func (c *Compiler) assignVariable(slot int, line int) {
	opType := c.current.Type
	c.advance()

	switch opType {
	case token.COLON:
		c.expression()
	case token.PLUS_COLON:
		c.program.EmitOpByte(OP_GET_VAR, byte(slot), line)
		c.expression()
		c.program.EmitOp(OP_ADD, line)
	case token.MINUS_COLON:
		c.program.EmitOpByte(OP_GET_VAR, byte(slot), line)
		c.expression()
		c.program.EmitOp(OP_SUBTRACT, line)
	case token.STAR_COLON:
		c.program.EmitOpByte(OP_GET_VAR, byte(slot), line)
		c.expression()
		c.program.EmitOp(OP_MULTIPLY, line)
	case token.SLASH_COLON:
		c.program.EmitOpByte(OP_GET_VAR, byte(slot), line)
		c.expression()
		c.program.EmitOp(OP_DIVIDE, line)
	}
	c.program.EmitOpByte(OP_SET_VAR, byte(slot), line)
}

// --- statements ---

func (c *Compiler) declaration() {
	if c.match(token.VAR) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	c.consume(token.IDENTIFIER, "Expected a variable name.")
	nameTok := c.previous
	idx, ok := c.declareVariable(nameTok)
	c.consume(token.COLON, "Expected ':' after the variable name.")
	c.expression()
	if ok {
		c.variables[idx].depth = c.scopeDepth
	}
	c.consumeEndOfStatement()
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.OUT):
		c.outStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.BLOCK):
		c.blockStatement()
	case c.match(token.FOREACH):
		c.foreachStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) outStatement() {
	line := c.previous.Line
	c.expression()
	c.consumeEndOfStatement()
	c.program.EmitOp(OP_OUT, line)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consumeEndOfStatement()
	c.program.EmitOp(OP_POP, c.previous.Line)
}

func (c *Compiler) blockBody() {
	for !c.check(token.END) && !c.check(token.EOF) {
		c.declaration()
	}
}

func (c *Compiler) blockStatement() {
	c.consumeNewline("Expected a newline after 'block'.")
	c.beginScope()
	c.blockBody()
	line := c.current.Line
	c.consume(token.END, "Expected 'end' to close the block.")
	c.consumeEndOfStatement()
	c.discardScope(line)
}

func (c *Compiler) ifStatement() {
	line := c.previous.Line
	c.expression()
	c.consumeNewline("Expected a newline after the if condition.")

	ifFalseJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_FALSE, line)
	c.program.EmitOp(OP_POP, line)

	c.beginScope()
	for !c.check(token.ELSE) && !c.check(token.END) && !c.check(token.EOF) {
		c.declaration()
	}
	c.discardScope(c.current.Line)

	endJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD, line)

	if _, ok := c.program.PatchJumpForward(ifFalseJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.program.EmitOp(OP_POP, line)

	if c.match(token.ELSE) {
		c.consumeNewline("Expected a newline after 'else'.")
		c.beginScope()
		for !c.check(token.END) && !c.check(token.EOF) {
			c.declaration()
		}
		c.discardScope(c.current.Line)
	}

	c.consume(token.END, "Expected 'end' to close the if statement.")
	c.consumeEndOfStatement()

	if _, ok := c.program.PatchJumpForward(endJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
}

// whileStatement compiles a conditional loop with an optional per-iteration
// `{mod}` step block, evaluated after the body and before the condition is
// re-checked.
func (c *Compiler) whileStatement() {
	conditionStart := len(c.program.Instructions)
	c.expression()
	condLine := c.previous.Line

	bodyJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_TRUE, condLine)
	endJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_FALSE, condLine)

	backTarget := conditionStart
	if c.match(token.OPEN_BRACE) {
		modLine := c.previous.Line
		backTarget = len(c.program.Instructions)
		c.expression()
		c.consume(token.CLOSE_BRACE, "Expected '}' to close the step expression.")
		c.program.EmitOp(OP_POP, modLine)
		c.emitJumpBackward(conditionStart, modLine)
	}

	c.consumeNewline("Expected a newline after the while condition.")

	if _, ok := c.program.PatchJumpForward(bodyJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.program.EmitOp(OP_POP, condLine)

	c.beginScope()
	for !c.check(token.END) && !c.check(token.EOF) {
		c.declaration()
	}
	bodyEndLine := c.current.Line
	c.discardScope(bodyEndLine)
	c.emitJumpBackward(backTarget, bodyEndLine)

	c.consume(token.END, "Expected 'end' to close the while statement.")
	c.consumeEndOfStatement()

	if _, ok := c.program.PatchJumpForward(endJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.program.EmitOp(OP_POP, bodyEndLine)
}

// emitJumpBackward writes an OP_JUMP_BWD that lands on target.
func (c *Compiler) emitJumpBackward(target int, line int) {
	distance, ok := JumpBackwardDistance(len(c.program.Instructions), target)
	if !ok {
		c.errorAtPrevious("Too much code to jump over.")
		distance = 0
	}
	c.program.EmitOpUint16(OP_JUMP_BWD, uint16(distance), line)
}

// foreachStatement compiles a counted loop over [start, end] with an
// optional step, re-evaluating both the end and step expressions on every
// iteration rather than caching them once.
func (c *Compiler) foreachStatement() {
	c.beginScope()

	c.consume(token.IDENTIFIER, "Expected a loop variable name.")
	nameTok := c.previous
	idx, declared := c.declareVariable(nameTok)

	c.consume(token.IN, "Expected 'in' after the loop variable name.")
	startLine := c.current.Line
	c.expression()
	if declared {
		c.variables[idx].depth = c.scopeDepth
	}

	c.consume(token.DOT_DOT, "Expected '..' between the loop bounds.")

	conditionStart := len(c.program.Instructions)
	c.program.EmitOpByte(OP_GET_VAR, byte(idx), startLine)
	c.expression()
	condLine := c.previous.Line
	c.program.EmitOp(OP_LESS_THAN_EQUALS, condLine)

	bodyJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_TRUE, condLine)
	endJump := c.program.EmitOpUint16Placeholder(OP_JUMP_FWD_IF_FALSE, condLine)

	stepStart := len(c.program.Instructions)
	c.program.EmitOpByte(OP_GET_VAR, byte(idx), condLine)
	hasStep := c.match(token.STEP)
	stepLine := condLine
	if hasStep {
		stepLine = c.current.Line
		c.expression()
	} else {
		c.emitConstant1(stepLine)
	}
	c.program.EmitOp(OP_ADD, stepLine)
	c.program.EmitOpByte(OP_SET_VAR, byte(idx), stepLine)
	c.program.EmitOp(OP_POP, stepLine)
	c.emitJumpBackward(conditionStart, stepLine)

	c.consumeNewline("Expected a newline after the foreach header.")

	if _, ok := c.program.PatchJumpForward(bodyJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.program.EmitOp(OP_POP, condLine)

	for !c.check(token.END) && !c.check(token.EOF) {
		c.declaration()
	}
	bodyEndLine := c.current.Line
	c.emitJumpBackward(stepStart, bodyEndLine)

	c.consume(token.END, "Expected 'end' to close the foreach statement.")
	c.consumeEndOfStatement()

	if _, ok := c.program.PatchJumpForward(endJump); !ok {
		c.errorAtPrevious("Too much code to jump over.")
	}
	c.program.EmitOp(OP_POP, bodyEndLine)

	c.discardScope(bodyEndLine)
}

// emitConstant1 pushes the implicit step literal 1.0 used when a foreach
// loop omits its `step` clause.
func (c *Compiler) emitConstant1(line int) {
	idx, ok := c.program.AddConstant(value.Number(1))
	if !ok {
		c.errorAtPrevious("Too many constants in one program.")
		return
	}
	c.program.EmitOpByte(OP_CONSTANT, byte(idx), line)
}
