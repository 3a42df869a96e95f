// Package engine renders data records against a brim template.
//
// A template is parsed once into literal text, placeholder expressions,
// comments and loop markers. Loop regions are resolved at parse time, so a
// render is a single walk over the parsed segments:
//
//  1. every placeholder outside a loop variable's reach is evaluated;
//  2. each loop region is expanded once per element of its list, with the
//     element bound to the loop variable;
//  3. whitespace between tags and runs of blank lines are collapsed.
//
// Placeholders naming a field the record does not hold are left in place
// as {expression}. Other failures are reported to the Reporter and also
// left in place. A parsed Template is immutable and may be rendered from
// many goroutines at once.
package engine
