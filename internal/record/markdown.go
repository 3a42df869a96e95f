package record

import (
	"bytes"
	"errors"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// ContentField receives the rendered Markdown body.
const ContentField = "content"

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// decodeMarkdown reads YAML frontmatter as the record fields and renders the
// body to HTML into ContentField.
func decodeMarkdown(data []byte) (map[string]any, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if len(bytes.TrimSpace(fm)) > 0 {
		var v any
		if err := yaml.Unmarshal(fm, &v); err != nil {
			return nil, err
		}
		if v != nil {
			fields, err = topLevelObject(stringifyKeys(v))
			if err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert(body, &buf); err != nil {
		return nil, err
	}
	fields[ContentField] = buf.String()
	return fields, nil
}

// splitFrontmatter separates `---` delimited YAML frontmatter from the body.
// Without an opening delimiter the whole input is the body.
func splitFrontmatter(content []byte) (frontmatter, body []byte, err error) {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return nil, content[start+len(open):], nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the last line has no trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			return content[start : len(content)-len("---")], nil, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}
	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], nil
}
