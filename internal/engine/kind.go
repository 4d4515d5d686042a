package engine

import "fmt"

// Kind is the type of a tree position. Values follow the numbering of the
// classic DOM node type table so that they can be compared with other tooling.
type Kind int

const (
	ElementNode      Kind = 1
	AttributeNode    Kind = 2
	TextNode         Kind = 3
	CDATASectionNode Kind = 4
	EntityRefNode    Kind = 5
	EntityNode       Kind = 6
	PINode           Kind = 7
	CommentNode      Kind = 8
	DocumentNode     Kind = 9
	DocumentTypeNode Kind = 10
	DocumentFragNode Kind = 11
	NotationNode     Kind = 12
	HTMLDocumentNode Kind = 13
	DTDNode          Kind = 14
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case AttributeNode:
		return "attribute"
	case TextNode:
		return "text"
	case CDATASectionNode:
		return "cdata-section"
	case EntityRefNode:
		return "entity-ref"
	case EntityNode:
		return "entity"
	case PINode:
		return "processing-instruction"
	case CommentNode:
		return "comment"
	case DocumentNode:
		return "document"
	case DocumentTypeNode:
		return "document-type"
	case DocumentFragNode:
		return "document-fragment"
	case NotationNode:
		return "notation"
	case HTMLDocumentNode:
		return "html-document"
	case DTDNode:
		return "dtd"
	default:
		return fmt.Sprintf("<kind %d>", int(k))
	}
}

// IsDocument reports whether k is one of the document node kinds.
func (k Kind) IsDocument() bool {
	return k == DocumentNode || k == HTMLDocumentNode
}

// HasChildren reports whether positions of kind k may have children.
func (k Kind) HasChildren() bool {
	switch k {
	case ElementNode, DocumentNode, HTMLDocumentNode, DocumentFragNode:
		return true
	}
	return false
}

// Kinds returns all the kinds known to the engine.
func Kinds() []Kind {
	return []Kind{
		ElementNode, AttributeNode, TextNode, CDATASectionNode,
		EntityRefNode, EntityNode, PINode, CommentNode, DocumentNode,
		DocumentTypeNode, DocumentFragNode, NotationNode, HTMLDocumentNode,
		DTDNode,
	}
}
