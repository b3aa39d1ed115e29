package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type selectionNode struct {
	sel *goquery.Selection
}

// FromDocument adapts a parsed goquery document to the Node interface.
func FromDocument(doc *goquery.Document) Node {
	return selectionNode{sel: doc.Selection}
}

// Parse reads an HTML document and returns its root node.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return FromDocument(doc), nil
}

func (n selectionNode) Tag() string {
	return goquery.NodeName(n.sel)
}

func (n selectionNode) Attr(name string) string {
	return n.sel.AttrOr(name, "")
}

func (n selectionNode) Text() string {
	return n.sel.Text()
}

func (n selectionNode) Parent() Node {
	p := n.sel.Parent()
	// Stop at the document node the way parentElement does.
	if p.Length() == 0 || strings.HasPrefix(goquery.NodeName(p), "#") {
		return nil
	}
	return selectionNode{sel: p}
}

func (n selectionNode) Children() []Node {
	children := n.sel.Children()
	out := make([]Node, 0, children.Length())
	children.Each(func(_ int, s *goquery.Selection) {
		out = append(out, selectionNode{sel: s})
	})
	return out
}
