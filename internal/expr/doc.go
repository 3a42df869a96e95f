// Package expr implements the small expression language used inside
// template placeholders.
//
// Expressions can only read the Scope they are evaluated against. The
// grammar covers literals, identifiers, field and index access, arithmetic,
// comparisons, membership tests, boolean logic and calls to a fixed set of
// built-in functions:
//
//	name
//	user.address.city
//	items[0]
//	price * quantity
//	title or "Untitled"
//	"draft" in tags
//	upper(name)
//	default(subtitle, "")
//
// There is no assignment, no attribute call and no way to reach anything
// outside the supplied values. Referencing a name the Scope does not hold
// yields an error matching ErrUndefined, which callers use to leave the
// placeholder for a later pass.
package expr
