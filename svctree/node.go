/*
 * MIT License
 *
 * Copyright (c) 2024 johnm-dev
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package svctree

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one entry in the dispatch tree: a name, a handler, the three
// dispatch flags, and a children list kept sorted by name.
type Node[H any] struct {
	name       string
	handler    H
	autoanswer bool
	virtual    bool
	wildcard   bool
	children   []*Node[H]
}

// New creates a node with the default flags: autoanswer=true, virtual=false,
// wildcard=false.
func New[H any](name string, handler H) *Node[H] {
	return &Node[H]{
		name:       name,
		handler:    handler,
		autoanswer: true,
	}
}

func (n *Node[H]) Name() string      { return n.name }
func (n *Node[H]) Handler() H        { return n.handler }
func (n *Node[H]) Autoanswer() bool  { return n.autoanswer }
func (n *Node[H]) Virtual() bool     { return n.virtual }
func (n *Node[H]) Wildcard() bool    { return n.wildcard }

func (n *Node[H]) SetAutoanswer(v bool) { n.autoanswer = v }
func (n *Node[H]) SetVirtual(v bool)    { n.virtual = v }
func (n *Node[H]) SetWildcard(v bool)   { n.wildcard = v }

// ChildNames returns the sorted names of n's direct children, used by the
// "list" standard operation (SPEC_FULL.md §C.5).
func (n *Node[H]) ChildNames() []string {
	names := make([]string, len(n.children))
	for i, c := range n.children {
		names[i] = c.name
	}
	return names
}

// Add inserts a new child under parent, keeping the children list sorted by
// name. It fails without mutating the tree if a child with the same name
// already exists (spec.md §4.3: "no silent replace").
func (n *Node[H]) Add(name string, handler H) (*Node[H], error) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].name >= name
	})
	if i < len(n.children) && n.children[i].name == name {
		return nil, fmt.Errorf("svctree: child %q already exists under %q", name, n.name)
	}
	child := New(name, handler)
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = child
	return child, nil
}

// Find descends the tree from root matching successive "/"-delimited
// components of path against children, in the order spec.md §4.3 describes:
// a virtual node matches (and swallows) the entire remaining path
// immediately; a wildcard child matches any single component; otherwise an
// exact-match child is required. It returns the matched node and the
// matched_path reconstructed from the segments actually consumed, bounded
// by maxMatchedPathLen — exceeding that capacity fails the search.
//
// Matching stops at the first satisfying child per component: findChild
// looks for an exact-match child before any wildcard sibling, so the exact
// match takes priority whenever both would apply to the same component
// (property tested in node_test.go).
func Find[H any](root *Node[H], path string, maxMatchedPathLen int) (*Node[H], string, error) {
	cur := root
	var matched []string

	components := splitPath(path)
	for _, comp := range components {
		if cur.virtual {
			return cur, strings.Join(matched, "/"), nil
		}

		child := cur.findChild(comp)
		if child == nil {
			return nil, "", fmt.Errorf("svctree: no match for component %q under %q", comp, cur.name)
		}

		matched = append(matched, comp)
		if mlen := len(strings.Join(matched, "/")); mlen > maxMatchedPathLen {
			return nil, "", fmt.Errorf("svctree: matched_path exceeds capacity %d", maxMatchedPathLen)
		}
		cur = child

		if cur.virtual {
			// the virtual node itself has just been matched as a component;
			// any further path is its concern, already excluded from
			// matched_path by definition (spec.md §4.3).
			return cur, strings.Join(matched, "/"), nil
		}
	}

	return cur, strings.Join(matched, "/"), nil
}

// findChild returns the exact-match child for comp if one exists, else the
// (first, since there should be at most one meaningful) wildcard child.
// Exact match is preferred over wildcard, matching spec.md §8 property 4.
func (n *Node[H]) findChild(comp string) *Node[H] {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].name >= comp
	})
	if i < len(n.children) && n.children[i].name == comp {
		return n.children[i]
	}
	for _, c := range n.children {
		if c.wildcard {
			return c
		}
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
