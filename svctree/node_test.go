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

package svctree_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/svctree"
)

type handler func() string

func h(name string) handler {
	return func() string { return name }
}

var _ = Describe("New", func() {
	It("defaults to autoanswer=true, virtual=false, wildcard=false", func() {
		n := svctree.New("root", h("root"))
		Expect(n.Autoanswer()).To(BeTrue())
		Expect(n.Virtual()).To(BeFalse())
		Expect(n.Wildcard()).To(BeFalse())
	})
})

var _ = Describe("Add", func() {
	It("keeps children sorted by name regardless of insertion order", func() {
		root := svctree.New("root", h("root"))
		_, err := root.Add("zeta", h("zeta"))
		Expect(err).ToNot(HaveOccurred())
		_, err = root.Add("alpha", h("alpha"))
		Expect(err).ToNot(HaveOccurred())
		_, err = root.Add("mu", h("mu"))
		Expect(err).ToNot(HaveOccurred())

		Expect(root.ChildNames()).To(Equal([]string{"alpha", "mu", "zeta"}))
	})

	It("fails without mutating the tree when the name already exists", func() {
		root := svctree.New("root", h("root"))
		_, err := root.Add("svc", h("svc-1"))
		Expect(err).ToNot(HaveOccurred())

		_, err = root.Add("svc", h("svc-2"))
		Expect(err).To(HaveOccurred())
		Expect(root.ChildNames()).To(Equal([]string{"svc"}))
	})
})

var _ = Describe("Find", func() {
	It("prefers an exact-match child over a sibling wildcard for the same component", func() {
		root := svctree.New("root", h("root"))
		_, err := root.Add("echo", h("echo"))
		Expect(err).ToNot(HaveOccurred())
		wc, err := root.Add("*", h("wild"))
		Expect(err).ToNot(HaveOccurred())
		wc.SetWildcard(true)

		n, matched, err := svctree.Find(root, "echo", 4096)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Handler()()).To(Equal("echo"))
		Expect(matched).To(Equal("echo"))
	})

	It("falls back to the wildcard child when no exact match exists", func() {
		root := svctree.New("root", h("root"))
		_, err := root.Add("echo", h("echo"))
		Expect(err).ToNot(HaveOccurred())
		wc, err := root.Add("*", h("wild"))
		Expect(err).ToNot(HaveOccurred())
		wc.SetWildcard(true)

		n, matched, err := svctree.Find(root, "anything", 4096)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Handler()()).To(Equal("wild"))
		Expect(matched).To(Equal("anything"))
	})

	It("short-circuits at a virtual node, leaving the remaining path unmatched", func() {
		root := svctree.New("root", h("root"))
		passthrough, err := root.Add("down", h("down"))
		Expect(err).ToNot(HaveOccurred())
		passthrough.SetVirtual(true)

		n, matched, err := svctree.Find(root, "down/extra/path/segments", 4096)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Handler()()).To(Equal("down"))
		Expect(matched).To(Equal("down"))
	})

	It("fails when no child matches and there is no wildcard", func() {
		root := svctree.New("root", h("root"))
		_, err := root.Add("echo", h("echo"))
		Expect(err).ToNot(HaveOccurred())

		_, _, err = svctree.Find(root, "missing", 4096)
		Expect(err).To(HaveOccurred())
	})

	It("fails when the matched path would exceed the caller's capacity", func() {
		root := svctree.New("root", h("root"))
		a, err := root.Add("aaaaaaaaaa", h("a"))
		Expect(err).ToNot(HaveOccurred())
		_, err = a.Add("bbbbbbbbbb", h("b"))
		Expect(err).ToNot(HaveOccurred())

		_, _, err = svctree.Find(root, "aaaaaaaaaa/bbbbbbbbbb", 5)
		Expect(err).To(HaveOccurred())
	})

	It("returns the root itself for an empty path", func() {
		root := svctree.New("root", h("root"))
		n, matched, err := svctree.Find(root, "", 4096)
		Expect(err).ToNot(HaveOccurred())
		Expect(n.Handler()()).To(Equal("root"))
		Expect(matched).To(Equal(""))
	})
})

var _ = Describe("ChildNames", func() {
	It("returns an empty, non-nil slice for a leaf", func() {
		leaf := svctree.New("leaf", h("leaf"))
		Expect(leaf.ChildNames()).To(BeEmpty())
		Expect(leaf.ChildNames()).ToNot(BeNil())
	})
})
