package desugar

import "github.com/weftlang/weft/ast"

// Listen rewrites every Listen statement into a Trap installing the same
// arms followed by a blocking Wait{Infinity} in the same block (spec §4.3
// pass 2). ast.RewriteBlock already recurses into the Listen's own arm
// bodies before this function ever sees the statement, so nested sugar is
// handled by the time it gets here.
func Listen(b ast.Block) (ast.Block, error) {
	return ast.RewriteBlock(b, func(s ast.Stmt) ([]ast.Stmt, error) {
		ln, ok := s.(ast.Listen)
		if !ok {
			return []ast.Stmt{s}, nil
		}
		return []ast.Stmt{
			ast.Trap{Label: ln.Label, Arms: ln.Arms},
			ast.Wait{Value: ast.InfinityExpr{}},
		}, nil
	})
}
