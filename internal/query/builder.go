package query

import (
	"fmt"
	"strings"

	"tronquery/internal/domain"
)

// sqlBuilder collects positional arguments while a statement is
// assembled.
type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

// bind renumbers a predicate's ? markers into positional placeholders and
// registers its arguments. Markers beyond the argument count stay literal
// so a miscounted hand-built predicate fails at the store instead of
// silently losing a clause operand.
func (b *sqlBuilder) bind(p domain.Predicate) string {
	expr := p.Expr
	var out strings.Builder
	argIdx := 0
	for {
		i := strings.IndexByte(expr, '?')
		if i < 0 {
			out.WriteString(expr)
			break
		}
		out.WriteString(expr[:i])
		if argIdx < len(p.Args) {
			idx := b.addArg(p.Args[argIdx])
			out.WriteString(b.placeholder(idx))
			argIdx++
		} else {
			out.WriteByte('?')
		}
		expr = expr[i+1:]
	}
	return out.String()
}
