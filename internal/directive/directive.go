package directive

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNamespace is the directive prefix used when none is configured.
const DefaultNamespace = "brim"

// Block is a single directive occurrence within a document.
type Block struct {
	// Name is the raw tag name between the namespace colon and '>'.
	Name string
	// Value is the raw text between the opening and closing tags.
	Value string
	// Start and End delimit the whole block (opening tag through closing tag).
	Start int
	End   int
}

// Syntax scans directive blocks for one namespace.
type Syntax struct {
	namespace string
	open      string
}

// New returns a Syntax for namespace. An empty namespace selects DefaultNamespace.
func New(namespace string) Syntax {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Syntax{namespace: namespace, open: "<" + namespace + ":"}
}

// Namespace returns the namespace this Syntax matches.
func (s Syntax) Namespace() string {
	return s.namespace
}

// Blocks returns every directive block in doc in order of appearance.
//
// For each opening tag the nearest closing tag with the identical name ends
// the block; values may span lines. An opening tag without a matching closer
// is skipped and scanning resumes right after its '<'.
func (s Syntax) Blocks(doc string) []Block {
	var blocks []Block
	pos := 0
	for pos < len(doc) {
		idx := strings.Index(doc[pos:], s.open)
		if idx < 0 {
			break
		}
		start := pos + idx
		nameStart := start + len(s.open)
		gt := strings.IndexByte(doc[nameStart:], '>')
		if gt < 0 {
			break
		}
		name := doc[nameStart : nameStart+gt]
		bodyStart := nameStart + gt + 1
		closer := "</" + s.namespace + ":" + name + ">"
		c := strings.Index(doc[bodyStart:], closer)
		if c < 0 {
			pos = start + 1
			continue
		}
		end := bodyStart + c + len(closer)
		blocks = append(blocks, Block{
			Name:  name,
			Value: doc[bodyStart : bodyStart+c],
			Start: start,
			End:   end,
		})
		pos = end
	}
	return blocks
}

// Extract builds the directive Map of a template.
func (s Syntax) Extract(template string) *Map {
	m := NewMap()
	for _, b := range s.Blocks(template) {
		m.add(normalizeKey(b.Name), strings.TrimSpace(b.Value))
	}
	return m
}

// Strip removes every directive block from doc and trims the result.
func (s Syntax) Strip(doc string) string {
	blocks := s.Blocks(doc)
	if len(blocks) == 0 {
		return strings.TrimSpace(doc)
	}
	var b strings.Builder
	b.Grow(len(doc))
	last := 0
	for _, blk := range blocks {
		b.WriteString(doc[last:blk.Start])
		last = blk.End
	}
	b.WriteString(doc[last:])
	return strings.TrimSpace(b.String())
}

// Extract builds the directive Map of template using DefaultNamespace.
func Extract(template string) *Map {
	return New(DefaultNamespace).Extract(template)
}

// Strip removes DefaultNamespace directive blocks from doc.
func Strip(doc string) string {
	return New(DefaultNamespace).Strip(doc)
}

func normalizeKey(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}
