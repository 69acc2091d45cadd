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

package client_test

import (
	"encoding/binary"
	"net"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	cl "github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/descriptor"
	"github.com/johnm-dev/russng-sub001/request"
)

// fixtureServer answers exactly one connection with a fresh set of data
// fds and an exit status, mimicking the descriptor-handoff sequence
// spec.md §4.4 describes for an autoanswer service.
func fixtureServer(lis *net.UnixListener, exitStatus buserr.ExitStatus, echo bool) {
	conn, err := lis.Accept()
	Expect(err).ToNot(HaveOccurred())
	uconn := conn.(*net.UnixConn)
	defer uconn.Close()

	_, err = request.ReadRequest(uconn)
	Expect(err).ToNot(HaveOccurred())

	readFDs, writeFDs, err := descriptor.MakePipes(3)
	Expect(err).ToNot(HaveOccurred())
	inRead, outWrite, errWrite := readFDs[0], writeFDs[1], writeFDs[2]
	inWriteForClient, outReadForClient, errReadForClient := writeFDs[0], readFDs[1], readFDs[2]

	exitReadFDs, exitWriteFDs, err := descriptor.MakePipes(1)
	Expect(err).ToNot(HaveOccurred())
	exitReadForClient, exitWrite := exitReadFDs[0], exitWriteFDs[0]

	Expect(descriptor.SendFD(uconn, inWriteForClient)).To(Succeed())
	Expect(descriptor.SendFD(uconn, outReadForClient)).To(Succeed())
	Expect(descriptor.SendFD(uconn, errReadForClient)).To(Succeed())
	Expect(descriptor.SendFD(uconn, exitReadForClient)).To(Succeed())

	_ = unix.Close(inWriteForClient)
	_ = unix.Close(outReadForClient)
	_ = unix.Close(errReadForClient)
	_ = unix.Close(exitReadForClient)

	if echo {
		buf := make([]byte, 64)
		n, _ := unix.Read(inRead, buf)
		_, _ = unix.Write(outWrite, buf[:n])
	}
	_ = unix.Close(inRead)
	_ = unix.Close(outWrite)
	_ = unix.Close(errWrite)

	var statusBuf [4]byte
	binary.LittleEndian.PutUint32(statusBuf[:], uint32(int32(exitStatus)))
	_, _ = unix.Write(exitWrite, statusBuf[:])
	_ = unix.Close(exitWrite)
}

func listen() (*net.UnixListener, string) {
	dir := GinkgoT().TempDir()
	sockPath := filepath.Join(dir, "svc.sock")
	lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: sockPath, Net: "unix"})
	Expect(err).ToNot(HaveOccurred())
	return lis, sockPath
}

var _ = Describe("Conn", func() {
	It("dials, sends a request, receives descriptors, streams, and observes exit", func() {
		lis, sockPath := listen()
		defer lis.Close()

		go fixtureServer(lis, buserr.ExitSuccess, true)

		c, err := cl.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.State()).To(Equal(cl.StateConnecting))

		req := request.New(request.OpExecute, "/echo", nil, []string{"hello"})
		Expect(c.SendRequest(req, deadline.Never)).To(Succeed())
		Expect(c.State()).To(Equal(cl.StateRequestSent))

		Expect(c.ReceiveDescriptors(deadline.Never)).To(Succeed())
		Expect(c.State()).To(Equal(cl.StateDescriptorsReceived))

		Expect(c.Stream()).To(Succeed())
		Expect(c.State()).To(Equal(cl.StateStreaming))

		_, err = unix.Write(c.In(), []byte("ping"))
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 64)
		n, err := unix.Read(c.Out(), buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("ping"))

		status, err := c.WaitExit(deadline.FromTimeout(time.Second))
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(buserr.ExitSuccess))
		Expect(c.State()).To(Equal(cl.StateExited))

		Expect(c.Close()).To(Succeed())
		Expect(c.State()).To(Equal(cl.StateClosed))
	})

	It("reports ExitFailure when the server signals failure", func() {
		lis, sockPath := listen()
		defer lis.Close()

		go fixtureServer(lis, buserr.ExitFailure, false)

		c, err := cl.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		req := request.New(request.OpExecute, "/fails", nil, nil)
		Expect(c.SendRequest(req, deadline.Never)).To(Succeed())
		Expect(c.ReceiveDescriptors(deadline.Never)).To(Succeed())
		Expect(c.Stream()).To(Succeed())

		status, err := c.WaitExit(deadline.FromTimeout(time.Second))
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(buserr.ExitFailure))

		Expect(c.Close()).To(Succeed())
	})

	It("rejects out-of-order calls", func() {
		lis, sockPath := listen()
		defer lis.Close()

		go fixtureServer(lis, buserr.ExitSuccess, false)

		c, err := cl.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		err = c.ReceiveDescriptors(deadline.Never)
		Expect(err).To(HaveOccurred())
		var wrongState *cl.ErrWrongState
		Expect(err).To(BeAssignableToTypeOf(wrongState))

		_ = c.Close()
	})

	It("defaults the exit status to ExitSysFailure when closed before Exited", func() {
		lis, sockPath := listen()
		defer lis.Close()

		go fixtureServer(lis, buserr.ExitSuccess, false)

		c, err := cl.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		req := request.New(request.OpExecute, "/svc", nil, nil)
		Expect(c.SendRequest(req, deadline.Never)).To(Succeed())
		Expect(c.ReceiveDescriptors(deadline.Never)).To(Succeed())

		Expect(c.Close()).To(Succeed())
		Expect(c.ExitStatus()).To(Equal(buserr.ExitSysFailure))
	})

	It("times out receiving descriptors when the server never answers", func() {
		dir := GinkgoT().TempDir()
		sockPath := filepath.Join(dir, "silent.sock")
		lis, err := net.ListenUnix("unix", &net.UnixAddr{Name: sockPath, Net: "unix"})
		Expect(err).ToNot(HaveOccurred())
		defer lis.Close()

		go func() {
			conn, aerr := lis.Accept()
			if aerr == nil {
				_, _ = request.ReadRequest(conn)
				// never answers; held open until the test closes its side
			}
		}()

		c, err := cl.Dial(sockPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		req := request.New(request.OpExecute, "/slow", nil, nil)
		Expect(c.SendRequest(req, deadline.Never)).To(Succeed())

		err = c.ReceiveDescriptors(deadline.FromTimeout(50 * time.Millisecond))
		Expect(err).To(Equal(deadline.ErrTimeout))

		_ = c.Close()
	})
})
