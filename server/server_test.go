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

//go:build linux

package server

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/request"
	"github.com/johnm-dev/russng-sub001/svctree"
)

func echoHandler(ctx context.Context, sc *ServerConn) error {
	buf := make([]byte, 4096)
	n, err := unix.Read(sc.In(), buf)
	if err != nil {
		return err
	}
	upper := strings.ToUpper(string(buf[:n]))
	if _, werr := unix.Write(sc.Out(), []byte(upper)); werr != nil {
		return werr
	}
	return nil
}

var _ = Describe("Server end-to-end", func() {
	It("serves an autoanswer request and reports the handler's exit status", func() {
		dir := GinkgoT().TempDir()
		sockPath := dir + "/echo.sock"

		tree := svctree.New[Handler]("", echoHandler)
		srv := New(Config{SocketPath: sockPath, Variant: VariantThread}, tree)
		Expect(srv.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx) }()

		cl, err := client.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		req := request.New("execute", "", nil, nil)
		Expect(cl.SendRequest(req, deadline.Never)).To(Succeed())
		Expect(cl.ReceiveDescriptors(deadline.Never)).To(Succeed())
		Expect(cl.Stream()).To(Succeed())

		_, err = unix.Write(cl.In(), []byte("hello"))
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 64)
		n, err := unix.Read(cl.Out(), buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("HELLO"))

		status, werr := cl.WaitExit(deadline.Never)
		Expect(werr).ToNot(HaveOccurred())
		Expect(status).To(Equal(buserr.ExitSuccess))

		Expect(cl.Close()).To(Succeed())
		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(srv.Close()).To(Succeed())
	})

	It("recovers a stale socket file left by a dead listener", func() {
		dir := GinkgoT().TempDir()
		sockPath := dir + "/stale.sock"

		// bind+listen directly via raw syscalls and close the fd without
		// unlinking, simulating a listener that died without cleanup —
		// net.UnixListener.Close would otherwise unlink the file itself.
		fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(unix.Bind(fd, &unix.SockaddrUnix{Name: sockPath})).To(Succeed())
		Expect(unix.Listen(fd, 1)).To(Succeed())
		Expect(unix.Close(fd)).To(Succeed())

		second := New(Config{SocketPath: sockPath}, svctree.New[Handler]("", nil))
		Expect(second.Listen()).To(Succeed())
		Expect(second.Close()).To(Succeed())
	})
})
