package desugar

import "github.com/weftlang/weft/ast"

// bindStack tracks which identifiers are bound at each lexical depth of a
// synthesized lambda body, so freeVars can tell a read of a bound name from
// a genuine capture.
type bindStack struct {
	scopes []map[string]bool
}

func (s *bindStack) push()         { s.scopes = append(s.scopes, map[string]bool{}) }
func (s *bindStack) pop()          { s.scopes = s.scopes[:len(s.scopes)-1] }
func (s *bindStack) bind(n string) { s.scopes[len(s.scopes)-1][n] = true }

func (s *bindStack) isBound(n string) bool {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i][n] {
			return true
		}
	}
	return false
}

// freeVars computes the ordered, deduplicated list of identifiers read by b
// that are not bound anywhere inside it — the capture set a trap lambda
// must carry in its Arm's with_env (§4.3 pass 3).
func freeVars(b ast.Block) []string {
	fv := &freeVarScan{stack: &bindStack{}}
	fv.stack.push()
	fv.block(b)
	fv.stack.pop()
	return fv.order
}

type freeVarScan struct {
	stack *bindStack
	seen  map[string]bool
	order []string
}

func (fv *freeVarScan) capture(name string) {
	if fv.stack.isBound(name) {
		return
	}
	if fv.seen == nil {
		fv.seen = map[string]bool{}
	}
	if fv.seen[name] {
		return
	}
	fv.seen[name] = true
	fv.order = append(fv.order, name)
}

func (fv *freeVarScan) expr(e ast.Expr) {
	ast.WalkExpr(e, func(x ast.Expr) {
		if id, ok := x.(ast.Ident); ok {
			fv.capture(id.Name)
		}
	}, nil)
}

func (fv *freeVarScan) cond(c ast.Cond) {
	ast.WalkCond(c, nil, func(e ast.Expr) { fv.expr(e) })
}

func (fv *freeVarScan) bindPattern(p ast.Pattern) {
	switch n := p.(type) {
	case ast.PAssign:
		fv.stack.bind(n.Var)
	case ast.PList:
		for _, e := range n.Elems {
			fv.bindPattern(e)
		}
	case ast.PMatch:
		fv.expr(n.Value)
	}
}

func (fv *freeVarScan) block(b ast.Block) {
	for _, s := range b.Stmts {
		fv.stmt(s)
	}
}

func (fv *freeVarScan) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case ast.Let:
		fv.expr(n.Value)
		fv.stack.bind(n.Var)
	case ast.Discard:
		fv.expr(n.Value)
	case ast.If:
		fv.cond(n.Test)
		fv.stack.push()
		fv.block(n.Success)
		fv.stack.pop()
		fv.stack.push()
		fv.block(n.Failure)
		fv.stack.pop()
	case ast.Recur:
		for _, a := range n.Call.Args {
			fv.expr(a)
		}
	case ast.SendMsg:
		fv.expr(n.Target)
		fv.expr(n.Message)
	case ast.Trace:
		fv.expr(n.Value)
	case ast.Wait:
		fv.expr(n.Value)
	case ast.Arm:
		fv.expr(n.WithEnv)
	case ast.Naked:
		fv.expr(n.Target)
		for _, t := range n.Text {
			fv.expr(t)
		}
	case ast.Trap:
		for _, a := range n.Arms {
			fv.stack.push()
			fv.bindPattern(a.Pattern)
			fv.bindPattern(a.Origin)
			fv.block(a.Body)
			fv.stack.pop()
		}
	case ast.Weave:
		for _, a := range n.Arms {
			fv.cond(a.Guard)
			fv.expr(a.Message)
			fv.stack.push()
			fv.block(a.Body)
			fv.stack.pop()
		}
	case ast.Match:
		fv.expr(n.Value)
		for _, a := range n.Arms {
			fv.stack.push()
			fv.bindPattern(a.Pattern)
			fv.cond(a.Guard)
			fv.block(a.Body)
			fv.stack.pop()
		}
		fv.stack.push()
		fv.block(n.OrElse)
		fv.stack.pop()
	}
}
