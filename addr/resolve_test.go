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

package addr_test

import (
	"net"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/addr"
)

var _ = Describe("ResolveAddr", func() {
	var savedDir string
	var hadDir bool

	BeforeEach(func() {
		savedDir, hadDir = os.LookupEnv("RUSS_SERVICES_DIR")
	})
	AfterEach(func() {
		if hadDir {
			os.Setenv("RUSS_SERVICES_DIR", savedDir)
		} else {
			os.Unsetenv("RUSS_SERVICES_DIR")
		}
	})

	It("rewrites a leading + using the default services dir when unset", func() {
		os.Unsetenv("RUSS_SERVICES_DIR")
		Expect(addr.ResolveAddr("+echo")).To(Equal(addr.DefaultServicesDir + "/echo"))
	})

	It("rewrites a leading /+ using RUSS_SERVICES_DIR when set", func() {
		os.Setenv("RUSS_SERVICES_DIR", "/custom/services")
		Expect(addr.ResolveAddr("/+echo/sub")).To(Equal("/custom/services/echo/sub"))
	})

	It("leaves an address with no +/  /+ prefix unchanged", func() {
		Expect(addr.ResolveAddr("/abs/path/echo")).To(Equal("/abs/path/echo"))
	})
})

func makeUnixSocket(path string) net.Listener {
	ln, err := net.Listen("unix", path)
	Expect(err).ToNot(HaveOccurred())
	return ln
}

var _ = Describe("FindServiceTarget", func() {
	It("finds a socket directly and reports an empty residual", func() {
		dir := GinkgoT().TempDir()
		sockPath := filepath.Join(dir, "echo")
		ln := makeUnixSocket(sockPath)
		defer ln.Close()

		saddr, spath, err := addr.FindServiceTarget(sockPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(saddr).To(Equal(sockPath))
		Expect(spath).To(Equal(""))
	})

	It("walks up past non-existent residual components to find the socket", func() {
		dir := GinkgoT().TempDir()
		sockPath := filepath.Join(dir, "echo")
		ln := makeUnixSocket(sockPath)
		defer ln.Close()

		full := filepath.Join(sockPath, "sub", "path")
		saddr, spath, err := addr.FindServiceTarget(full)
		Expect(err).ToNot(HaveOccurred())
		Expect(saddr).To(Equal(sockPath))
		Expect(spath).To(Equal("/sub/path"))
		Expect(filepath.Join(saddr, spath)).To(Equal(full))
	})

	It("dereferences a symlink at the socket's own level", func() {
		dir := GinkgoT().TempDir()
		realSock := filepath.Join(dir, "real-echo")
		ln := makeUnixSocket(realSock)
		defer ln.Close()

		linkPath := filepath.Join(dir, "echo")
		Expect(os.Symlink(realSock, linkPath)).To(Succeed())

		full := filepath.Join(linkPath, "sub")
		saddr, spath, err := addr.FindServiceTarget(full)
		Expect(err).ToNot(HaveOccurred())
		Expect(saddr).To(Equal(realSock))
		Expect(spath).To(Equal("/sub"))
	})

	It("fails when no ancestor exists at all", func() {
		_, _, err := addr.FindServiceTarget("/definitely/does/not/exist/anywhere")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("FindServiceAddr", func() {
	It("fails when the resolved node exists but is not a socket", func() {
		dir := GinkgoT().TempDir()
		_, _, err := addr.FindServiceAddr(dir)
		Expect(err).To(MatchError(addr.ErrNotSocket))
	})

	It("succeeds when the resolved node is a socket", func() {
		dir := GinkgoT().TempDir()
		sockPath := filepath.Join(dir, "svc")
		ln := makeUnixSocket(sockPath)
		defer ln.Close()

		saddr, _, err := addr.FindServiceAddr(sockPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(saddr).To(Equal(sockPath))
	})
})
