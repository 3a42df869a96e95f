// Package directive finds namespaced directive blocks in a template.
//
// A directive block is written as an element whose tag name carries the
// directive namespace, for example:
//
//	<brim:title>Release notes</brim:title>
//	<brim:optimize:image>true</brim:optimize:image>
//
// The closing tag must repeat the opening tag's name exactly. Blocks whose
// closer does not match are not directives and are left alone. Extraction
// collects block values into an ordered Map; stripping removes the blocks
// from a rendered document.
package directive
