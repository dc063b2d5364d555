package domain

import "strings"

// Predicate is a boolean expression over entity columns. Expr uses ?
// markers for arguments; the query engine renumbers them into positional
// placeholders when the statement is built.
type Predicate struct {
	Expr string
	Args []any
}

func compare(column, op string, value any) Predicate {
	return Predicate{Expr: column + " " + op + " ?", Args: []any{value}}
}

// Eq matches rows whose column equals value.
func Eq(column string, value any) Predicate { return compare(column, "=", value) }

// Ne matches rows whose column differs from value.
func Ne(column string, value any) Predicate { return compare(column, "<>", value) }

// Gt matches rows whose column is greater than value.
func Gt(column string, value any) Predicate { return compare(column, ">", value) }

// Gte matches rows whose column is greater than or equal to value.
func Gte(column string, value any) Predicate { return compare(column, ">=", value) }

// Lt matches rows whose column is less than value.
func Lt(column string, value any) Predicate { return compare(column, "<", value) }

// Lte matches rows whose column is less than or equal to value.
func Lte(column string, value any) Predicate { return compare(column, "<=", value) }

// Like matches rows whose column matches the SQL LIKE pattern.
func Like(column string, pattern string) Predicate {
	return compare(column, "LIKE", pattern)
}

func combine(op string, preds []Predicate) Predicate {
	if len(preds) == 1 {
		return preds[0]
	}
	exprs := make([]string, len(preds))
	var args []any
	for i, p := range preds {
		exprs[i] = "(" + p.Expr + ")"
		args = append(args, p.Args...)
	}
	return Predicate{Expr: strings.Join(exprs, " "+op+" "), Args: args}
}

// And combines predicates so that all must hold.
func And(preds ...Predicate) Predicate { return combine("AND", preds) }

// Or combines predicates so that at least one must hold.
func Or(preds ...Predicate) Predicate { return combine("OR", preds) }

// IsZero reports whether the predicate carries no expression.
func (p Predicate) IsZero() bool { return p.Expr == "" }
