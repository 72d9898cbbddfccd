package catalog

import (
	"sort"
	"strings"

	"vitrine/internal/domain"

	"github.com/google/uuid"
)

// CategoryNode is a category with its subcategories and the number of products
// filed under it or under any of its descendants.
type CategoryNode struct {
	domain.Category
	ProductCount int             `json:"product_count"`
	Children     []*CategoryNode `json:"children"`
}

// FlatCategory is one row of a depth-first listing of the tree
type FlatCategory struct {
	domain.Category
	Depth        int    `json:"depth"`
	Path         string `json:"path"`
	ProductCount int    `json:"product_count"`
}

// BuildTree converts the flat parent-pointer list into a forest. A category
// whose parent is unknown, or whose parent chain loops back to itself, becomes a root.
func BuildTree(categories []*domain.Category, products []*domain.Product) []*CategoryNode {
	nodes := make([]*CategoryNode, len(categories))
	index := make(map[uuid.UUID]int, len(categories))
	for i, c := range categories {
		nodes[i] = &CategoryNode{Category: *c, Children: []*CategoryNode{}}
		index[c.ID] = i
	}

	parent := make([]int, len(nodes))
	for i, c := range categories {
		parent[i] = -1
		if c.ParentID == nil {
			continue
		}
		if p, ok := index[*c.ParentID]; ok && p != i {
			parent[i] = p
		}
	}
	breakCycles(parent)

	var roots []*CategoryNode
	for i, n := range nodes {
		if parent[i] < 0 {
			roots = append(roots, n)
			continue
		}
		p := nodes[parent[i]]
		p.Children = append(p.Children, n)
	}

	direct := make(map[string]int)
	for _, p := range products {
		direct[p.CategorySlug]++
	}

	sortNodes(roots)
	for _, r := range roots {
		countProducts(r, direct)
	}
	if roots == nil {
		roots = []*CategoryNode{}
	}
	return roots
}

// breakCycles detaches one node per parent cycle, the one where the walk
// re-entered the cycle, so it becomes a root and the rest of the cycle hangs
// below it
func breakCycles(parent []int) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(parent))
	for start := range parent {
		if state[start] != unvisited {
			continue
		}
		var path []int
		n := start
		for n >= 0 && state[n] == unvisited {
			state[n] = visiting
			path = append(path, n)
			n = parent[n]
		}
		if n >= 0 && state[n] == visiting {
			// n is on the cycle just walked; cut its link to restore a tree
			parent[n] = -1
		}
		for _, p := range path {
			state[p] = done
		}
	}
}

func sortNodes(nodes []*CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Position != nodes[j].Position {
			return nodes[i].Position < nodes[j].Position
		}
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

func countProducts(n *CategoryNode, direct map[string]int) int {
	total := direct[n.Slug]
	for _, c := range n.Children {
		total += countProducts(c, direct)
	}
	n.ProductCount = total
	return total
}

// Flatten lists the forest depth-first, parents before children
func Flatten(roots []*CategoryNode) []FlatCategory {
	out := []FlatCategory{}
	var walk func(nodes []*CategoryNode, depth int, prefix string)
	walk = func(nodes []*CategoryNode, depth int, prefix string) {
		for _, n := range nodes {
			path := n.Name
			if prefix != "" {
				path = prefix + " / " + n.Name
			}
			out = append(out, FlatCategory{
				Category:     n.Category,
				Depth:        depth,
				Path:         path,
				ProductCount: n.ProductCount,
			})
			walk(n.Children, depth+1, path)
		}
	}
	walk(roots, 0, "")
	return out
}

// FindNode returns the node with the given slug
func FindNode(roots []*CategoryNode, slug string) *CategoryNode {
	for _, n := range roots {
		if n.Slug == slug {
			return n
		}
		if found := FindNode(n.Children, slug); found != nil {
			return found
		}
	}
	return nil
}

// DescendantSlugs returns slug and the slugs of all its descendants. An unknown
// slug yields just itself so filtering on it matches products filed directly.
func DescendantSlugs(roots []*CategoryNode, slug string) []string {
	node := FindNode(roots, slug)
	if node == nil {
		return []string{slug}
	}
	var out []string
	var walk func(n *CategoryNode)
	walk = func(n *CategoryNode) {
		out = append(out, n.Slug)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(node)
	return out
}

// Breadcrumb returns the chain of categories from a root down to slug
func Breadcrumb(roots []*CategoryNode, slug string) []domain.Category {
	var trail []domain.Category
	var walk func(nodes []*CategoryNode) bool
	walk = func(nodes []*CategoryNode) bool {
		for _, n := range nodes {
			trail = append(trail, n.Category)
			if n.Slug == slug || walk(n.Children) {
				return true
			}
			trail = trail[:len(trail)-1]
		}
		return false
	}
	if !walk(roots) {
		return []domain.Category{}
	}
	return trail
}

// WouldCycle reports whether giving category id the parent newParent would
// make the category its own ancestor.
func WouldCycle(categories []*domain.Category, id uuid.UUID, newParent *uuid.UUID) bool {
	if newParent == nil {
		return false
	}
	parents := make(map[uuid.UUID]*uuid.UUID, len(categories))
	for _, c := range categories {
		parents[c.ID] = c.ParentID
	}
	seen := map[uuid.UUID]bool{}
	cur := newParent
	for cur != nil {
		if *cur == id {
			return true
		}
		if seen[*cur] {
			return false
		}
		seen[*cur] = true
		cur = parents[*cur]
	}
	return false
}
