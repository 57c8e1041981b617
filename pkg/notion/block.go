package notion

import (
	"errors"
	"fmt"
)

// Block type discriminators the helpers understand. Any other type is
// carried through Block untouched.
const (
	TypeParagraph = "paragraph"
	TypeHeading1  = "heading_1"
	TypeHeading2  = "heading_2"
	TypeHeading3  = "heading_3"
	TypeImage     = "image"
)

// Rich text array keys. API versions before 2022-02-22 name the array
// "text"; later versions use "rich_text".
const (
	legacyRichTextKey = "text"
	richTextKey       = "rich_text"
	richTextCutover   = "2022-02-22"
)

var errNoRichText = errors.New("block has no rich text run")

// Block is an untyped block object as returned by the API.
type Block map[string]any

// Page is an untyped page object as returned by the API.
type Page map[string]any

// ID returns the page identifier.
func (p Page) ID() string { return stringField(p, "id") }

// ID returns the block identifier.
func (b Block) ID() string { return stringField(b, "id") }

// Type returns the block type discriminator.
func (b Block) Type() string { return stringField(b, "type") }

// HasChildren reports the has_children flag.
func (b Block) HasChildren() bool {
	v, _ := b["has_children"].(bool)
	return v
}

// IsTextType reports whether typ is one of the text-bearing block kinds.
func IsTextType(typ string) bool {
	switch typ {
	case TypeParagraph, TypeHeading1, TypeHeading2, TypeHeading3:
		return true
	default:
		return false
	}
}

// NewParagraph builds a paragraph block holding a single text run, using
// the rich text key of the default API version.
func NewParagraph(text string) Block {
	return newParagraph(legacyRichTextKey, text)
}

func newParagraph(key, text string) Block {
	return Block{
		"type": TypeParagraph,
		TypeParagraph: map[string]any{
			key: []any{
				map[string]any{
					"type": "text",
					"text": map[string]any{
						"content": text,
					},
				},
			},
		},
	}
}

// NewExternalImage builds an image block pointing at an external URL.
func NewExternalImage(url string) Block {
	return Block{
		"type": TypeImage,
		TypeImage: map[string]any{
			"type": "external",
			"external": map[string]any{
				"url": url,
			},
		},
	}
}

// TextGet returns the content of the first rich text run of a text block.
// Blocks of any other type, or text blocks without a run, yield false.
func TextGet(b Block) (string, bool) {
	run, err := firstTextRun(b)
	if err != nil {
		return "", false
	}
	content, ok := run["content"].(string)
	return content, ok
}

// ImageGetURL returns the external URL of an image block.
func ImageGetURL(b Block) (string, bool) {
	if b.Type() != TypeImage {
		return "", false
	}
	image, ok := b[TypeImage].(map[string]any)
	if !ok {
		return "", false
	}
	external, ok := image["external"].(map[string]any)
	if !ok {
		return "", false
	}
	url, ok := external["url"].(string)
	return url, ok
}

// setText overwrites the first rich text run content in place.
func setText(b Block, text string) error {
	run, err := firstTextRun(b)
	if err != nil {
		return err
	}
	run["content"] = text
	return nil
}

// firstTextRun returns the inner "text" object of the first rich text run.
func firstTextRun(b Block) (map[string]any, error) {
	typ := b.Type()
	if !IsTextType(typ) {
		return nil, fmt.Errorf("block type %q is not a text block", typ)
	}
	content, ok := b[typ].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s block has no %q object", typ, typ)
	}

	runs, ok := content[richTextKey].([]any)
	if !ok {
		runs, ok = content[legacyRichTextKey].([]any)
	}
	if !ok || len(runs) == 0 {
		return nil, errNoRichText
	}
	first, ok := runs[0].(map[string]any)
	if !ok {
		return nil, errNoRichText
	}
	text, ok := first["text"].(map[string]any)
	if !ok {
		return nil, errNoRichText
	}
	return text, nil
}

func richTextKeyFor(version string) string {
	if version != "" && version >= richTextCutover {
		return richTextKey
	}
	return legacyRichTextKey
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
