package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	// AttrPrefix marks mapping keys that hold XML attributes.
	AttrPrefix = "@"
	// TextKey holds element text when the element also has attributes or children.
	TextKey = "#text"
)

var ErrNoRootElement = errors.New("xml document has no root element")

// DecodeXML parses an XML document into a mapping with a single key, the root
// element's tag.
//
// Attributes become "@name" fields, text next to attributes or children
// becomes a "#text" field, and repeated sibling elements collapse into one
// sequence at the position of the first occurrence. Comments and processing
// instructions are dropped.
func DecodeXML(data []byte) (*Value, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRootElement
	}
	return Mapping(Field{Key: root.FullTag(), Value: elementValue(root)}), nil
}

func elementValue(el *etree.Element) *Value {
	var text strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			text.WriteString(cd.Data)
		}
	}
	trimmed := strings.TrimSpace(text.String())

	children := el.ChildElements()
	if len(el.Attr) == 0 && len(children) == 0 {
		return String(trimmed)
	}

	m := Mapping()
	for _, attr := range el.Attr {
		m.Set(AttrPrefix+attr.FullKey(), String(attr.Value))
	}
	for _, child := range children {
		tag := child.FullTag()
		val := elementValue(child)
		existing, ok := m.Get(tag)
		switch {
		case !ok:
			m.Set(tag, val)
		case existing.Kind() == SequenceKind:
			// element values are never sequences, so this is an earlier sibling group
			existing.Append(val)
		default:
			m.Set(tag, Sequence(existing, val))
		}
	}
	if trimmed != "" {
		m.Set(TextKey, String(trimmed))
	}
	return m
}

// EncodeXML renders a document produced by DecodeXML (or shaped the same way)
// back to XML. The value must be a mapping with exactly one element key.
func EncodeXML(v *Value) ([]byte, error) {
	if v == nil || v.Kind() != MappingKind {
		return nil, fmt.Errorf("encode xml: document must be a mapping")
	}
	var rootTag string
	var rootVal *Value
	for _, f := range v.Fields() {
		if strings.HasPrefix(f.Key, AttrPrefix) || f.Key == TextKey {
			return nil, fmt.Errorf("encode xml: document root cannot hold '%s'", f.Key)
		}
		if rootVal != nil {
			return nil, fmt.Errorf("encode xml: document has more than one root element ('%s', '%s')", rootTag, f.Key)
		}
		rootTag, rootVal = f.Key, f.Value
	}
	if rootVal == nil {
		return nil, fmt.Errorf("encode xml: %w", ErrNoRootElement)
	}
	if rootVal.Kind() == SequenceKind {
		return nil, fmt.Errorf("encode xml: root element '%s' cannot repeat", rootTag)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	if err := writeElement(&doc.Element, rootTag, rootVal); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	doc.Indent(2)
	return doc.WriteToBytes()
}

func writeElement(parent *etree.Element, tag string, v *Value) error {
	switch v.Kind() {
	case StringKind:
		el := parent.CreateElement(tag)
		if v.Str() != "" {
			el.SetText(v.Str())
		}
	case SequenceKind:
		for _, item := range v.Items() {
			if item.Kind() == SequenceKind {
				return fmt.Errorf("element '%s' holds a nested sequence", tag)
			}
			if err := writeElement(parent, tag, item); err != nil {
				return err
			}
		}
	case MappingKind:
		el := parent.CreateElement(tag)
		for _, f := range v.Fields() {
			switch {
			case strings.HasPrefix(f.Key, AttrPrefix):
				if f.Value.Kind() != StringKind {
					return fmt.Errorf("attribute '%s' of '%s' is a %s", f.Key, tag, f.Value.Kind())
				}
				el.CreateAttr(strings.TrimPrefix(f.Key, AttrPrefix), f.Value.Str())
			case f.Key == TextKey:
				if f.Value.Kind() != StringKind {
					return fmt.Errorf("text of '%s' is a %s", tag, f.Value.Kind())
				}
				el.SetText(f.Value.Str())
			default:
				if err := writeElement(el, f.Key, f.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
