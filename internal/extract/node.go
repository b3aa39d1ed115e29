package extract

import "strings"

// Node is the minimal view of a document element the extractor needs.
// Parent returns nil at the top of the element tree.
type Node interface {
	Tag() string
	Attr(name string) string
	Text() string
	Parent() Node
	Children() []Node
}

// findFirst returns the first descendant of root, in document order, that
// satisfies match. root itself is never considered.
func findFirst(root Node, match func(Node) bool) Node {
	for _, child := range root.Children() {
		if match(child) {
			return child
		}
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns every descendant of root satisfying match, in document order.
func findAll(root Node, match func(Node) bool) []Node {
	var out []Node
	var walk func(Node)
	walk = func(n Node) {
		for _, child := range n.Children() {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(root)
	return out
}

func isTag(tag string) func(Node) bool {
	return func(n Node) bool {
		return strings.EqualFold(n.Tag(), tag)
	}
}

// classContains mirrors the CSS [class*="x"] attribute selector.
func classContains(fragments ...string) func(Node) bool {
	return func(n Node) bool {
		class := n.Attr("class")
		if class == "" {
			return false
		}
		for _, f := range fragments {
			if strings.Contains(class, f) {
				return true
			}
		}
		return false
	}
}

func trimmedText(n Node) string {
	return strings.TrimSpace(n.Text())
}
