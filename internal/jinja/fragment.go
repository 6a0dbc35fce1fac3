// Package jinja compiles value transforms into Home Assistant template
// fragments that are observably equivalent to the runtime interpreter: for
// every raw input, evaluating the compiled template yields the same value
// the interpreter would produce for that transform.
package jinja

// Fragment is a compiled piece of template. It is either a plain expression,
// directly inlineable as a sub-expression of a larger fragment, or a block:
// a statement prologue (set/if/for) that must stand alone, followed by a
// terminal expression over the names the prologue binds.
type Fragment struct {
	prologue string
	expr     string
}

// Expression builds an expression-shaped fragment.
func Expression(expr string) Fragment {
	return Fragment{expr: expr}
}

// Block builds a block-shaped fragment from a statement prologue and the
// terminal expression evaluated after it.
func Block(prologue, expr string) Fragment {
	return Fragment{prologue: prologue, expr: expr}
}

// IsBlock reports whether the fragment needs a statement prologue and can
// therefore not be spliced into a larger expression.
func (f Fragment) IsBlock() bool { return f.prologue != "" }

// Expr returns the terminal expression text, without {{ }} delimiters.
func (f Fragment) Expr() string { return f.expr }

// Prologue returns the statement prologue, empty for expression fragments.
func (f Fragment) Prologue() string { return f.prologue }

// Render returns the complete template string for the fragment.
func (f Fragment) Render() string {
	return f.prologue + "{{ " + f.expr + " }}"
}
