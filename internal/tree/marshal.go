package tree

import (
	"encoding/xml"
	"strings"
)

// OutputXML serializes the subtree rooted at n back to XML text.
// Attribute nodes render as name="value", namespace nodes as an xmlns
// declaration, so every query result has a printable form.
func OutputXML(n *Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.Kind {
	case DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
	case ElementNode:
		sb.WriteByte('<')
		sb.WriteString(n.Name())
		for _, d := range n.decls {
			sb.WriteByte(' ')
			if d.Prefix == "" {
				sb.WriteString("xmlns")
			} else {
				sb.WriteString("xmlns:" + d.Prefix)
			}
			sb.WriteString(`="`)
			writeEscaped(sb, d.URI)
			sb.WriteByte('"')
		}
		for _, a := range n.Attrs {
			sb.WriteByte(' ')
			sb.WriteString(a.Name())
			sb.WriteString(`="`)
			writeEscaped(sb, a.Data)
			sb.WriteByte('"')
		}
		if n.FirstChild == nil {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(sb, c)
		}
		sb.WriteString("</")
		sb.WriteString(n.Name())
		sb.WriteByte('>')
	case AttributeNode:
		sb.WriteString(n.Name())
		sb.WriteString(`="`)
		writeEscaped(sb, n.Data)
		sb.WriteByte('"')
	case TextNode:
		writeEscaped(sb, n.Data)
	case CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.Data)
		sb.WriteString("-->")
	case ProcessingInstructionNode:
		sb.WriteString("<?")
		sb.WriteString(n.Local)
		if n.Data != "" {
			sb.WriteByte(' ')
			sb.WriteString(n.Data)
		}
		sb.WriteString("?>")
	case NamespaceNode:
		if n.Local == "" {
			sb.WriteString("xmlns")
		} else {
			sb.WriteString("xmlns:" + n.Local)
		}
		sb.WriteString(`="`)
		writeEscaped(sb, n.Data)
		sb.WriteByte('"')
	}
}

func writeEscaped(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}
