package expr

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/Rana718/seedbench/internal/model"
	"go.starlark.net/syntax"
)

// Program is a compiled, type-checked expression. It is evaluated afresh on
// every call.
type Program struct {
	src  string
	root node
}

func (p *Program) Source() string { return p.src }

func (p *Program) Type() Type { return p.root.typ() }

func (p *Program) Eval(env *Env) (any, error) {
	return p.root.eval(env)
}

type node interface {
	typ() Type
	eval(env *Env) (any, error)
}

type litNode struct {
	value any
	t     Type
}

func (n *litNode) typ() Type { return n.t }

func (n *litNode) eval(*Env) (any, error) { return n.value, nil }

type listNode struct {
	items []node
}

func (n *listNode) typ() Type { return TypeList }

func (n *listNode) eval(env *Env) (any, error) {
	out := make([]any, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type callNode struct {
	name string
	fn   Func
	args []node
}

func (n *callNode) typ() Type { return n.fn.Returns }

func (n *callNode) eval(env *Env) (any, error) {
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return n.fn.Impl(env, args)
}

var fileOptions = &syntax.FileOptions{}

// Compile parses src, resolves every call against reg and checks that the
// result is assignable to want.
func Compile(reg *Registry, src string, want Type) (*Program, error) {
	parsed, err := fileOptions.ParseExpr("expression", src, 0)
	if err != nil {
		return nil, model.ErrEvaluation(model.SyntaxError, src, "%v", err)
	}
	c := compiler{reg: reg, src: src}
	root, err := c.compile(parsed)
	if err != nil {
		return nil, err
	}
	if !root.typ().AssignableTo(want) {
		return nil, model.ErrEvaluation(model.TypeMismatch, src,
			"result of type %s is not assignable to %s", root.typ(), want)
	}
	return &Program{src: src, root: root}, nil
}

type compiler struct {
	reg *Registry
	src string
}

func (c *compiler) compile(e syntax.Expr) (node, error) {
	switch e := e.(type) {
	case *syntax.ParenExpr:
		return c.compile(e.X)
	case *syntax.Literal:
		return literal(e.Value, false, c.src)
	case *syntax.UnaryExpr:
		lit, ok := e.X.(*syntax.Literal)
		if e.Op != syntax.MINUS || !ok {
			return nil, model.ErrEvaluation(model.SyntaxError, c.src, "unsupported operator %s", e.Op)
		}
		return literal(lit.Value, true, c.src)
	case *syntax.Ident:
		switch e.Name {
		case "True", "true":
			return &litNode{value: true, t: TypeBool}, nil
		case "False", "false":
			return &litNode{value: false, t: TypeBool}, nil
		case "None", "null":
			return &litNode{value: nil, t: TypeAny}, nil
		}
		return nil, model.ErrEvaluation(model.SyntaxError, c.src, "bare identifier %q, did you mean %s()?", e.Name, e.Name)
	case *syntax.ListExpr:
		items := make([]node, len(e.List))
		for i, x := range e.List {
			n, err := c.compile(x)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return &listNode{items: items}, nil
	case *syntax.CallExpr:
		return c.call(e)
	default:
		return nil, model.ErrEvaluation(model.SyntaxError, c.src, "unsupported expression %T", e)
	}
}

func (c *compiler) call(e *syntax.CallExpr) (node, error) {
	ident, ok := e.Fn.(*syntax.Ident)
	if !ok {
		return nil, model.ErrEvaluation(model.SyntaxError, c.src, "call target must be a function name")
	}
	fn, ok := c.reg.Lookup(ident.Name)
	if !ok {
		return nil, model.ErrEvaluation(model.UndefinedFunction, c.src, "function %s is not defined", ident.Name)
	}
	if !fn.acceptsArgs(len(e.Args)) {
		return nil, model.ErrEvaluation(model.TypeMismatch, c.src,
			"%s does not accept %d arguments", ident.Name, len(e.Args))
	}

	args := make([]node, len(e.Args))
	for i, a := range e.Args {
		if bin, ok := a.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			return nil, model.ErrEvaluation(model.SyntaxError, c.src, "keyword arguments are not supported")
		}
		n, err := c.compile(a)
		if err != nil {
			return nil, err
		}
		if want := fn.paramType(i); !n.typ().AssignableTo(want) {
			return nil, model.ErrEvaluation(model.TypeMismatch, c.src,
				"argument %d of %s is %s, want %s", i+1, ident.Name, n.typ(), want)
		}
		args[i] = n
	}
	return &callNode{name: ident.Name, fn: fn, args: args}, nil
}

func literal(v any, negate bool, src string) (node, error) {
	switch v := v.(type) {
	case string:
		if negate {
			break
		}
		return &litNode{value: v, t: TypeString}, nil
	case int64:
		if negate {
			v = -v
		}
		return &litNode{value: v, t: TypeInt}, nil
	case *big.Int:
		return nil, model.ErrEvaluation(model.SyntaxError, src, "integer literal %s out of range", v)
	case float64:
		if negate {
			v = -v
		}
		return &litNode{value: v, t: TypeFloat}, nil
	}
	return nil, model.ErrEvaluation(model.SyntaxError, src, "unsupported literal %s", fmt.Sprint(v))
}

// Evaluator caches compiled programs by source text, so an expression shared
// by several columns is parsed once. It is safe for concurrent use.
type Evaluator struct {
	reg *Registry
	env *Env

	mu       sync.Mutex
	programs map[string]*Program
}

func NewEvaluator(reg *Registry, env *Env) *Evaluator {
	return &Evaluator{reg: reg, env: env, programs: make(map[string]*Program)}
}

// Program returns the compiled program for src, compiling it on first use.
func (e *Evaluator) Program(src string, want Type) (*Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[src]; ok && p.Type().AssignableTo(want) {
		return p, nil
	}
	p, err := Compile(e.reg, src, want)
	if err != nil {
		return nil, err
	}
	e.programs[src] = p
	return p, nil
}

func (e *Evaluator) Eval(src string, want Type) (any, error) {
	p, err := e.Program(src, want)
	if err != nil {
		return nil, err
	}
	return p.Eval(e.env)
}
