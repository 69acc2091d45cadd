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

package relay_test

import (
	"encoding/binary"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/relay"
)

func makePipe() (r, w int) {
	var fds [2]int
	Expect(unix.Pipe2(fds[:], unix.O_CLOEXEC)).To(Succeed())
	return fds[0], fds[1]
}

var _ = Describe("Relay", func() {
	It("bridges a stream's rfd to its wfd until the exit fd reports a status", func() {
		upR, upW := makePipe()   // fed by the "client"
		downR, downW := makePipe() // read by the "client"
		exitR, exitW := makePipe()

		r := relay.New(exitR)
		r.Add(upR, downW, 0, false, false)

		done := make(chan struct{})
		var status buserr.ExitStatus
		var serveErr error
		go func() {
			status, serveErr = r.Serve(deadline.Never)
			close(done)
		}()

		_, err := unix.Write(upW, []byte("payload"))
		Expect(err).ToNot(HaveOccurred())

		buf := make([]byte, 64)
		Eventually(func() (int, error) {
			return unix.Read(downR, buf)
		}, time.Second).Should(BeNumerically(">", 0))
		Expect(string(buf[:7])).To(Equal("payload"))

		var statusBuf [4]byte
		binary.LittleEndian.PutUint32(statusBuf[:], uint32(buserr.ExitSuccess))
		_, err = unix.Write(exitW, statusBuf[:])
		Expect(err).ToNot(HaveOccurred())

		Eventually(done, time.Second).Should(BeClosed())
		Expect(serveErr).ToNot(HaveOccurred())
		Expect(status).To(Equal(buserr.ExitSuccess))

		_ = unix.Close(upR)
		_ = unix.Close(upW)
		_ = unix.Close(downR)
		_ = unix.Close(downW)
		_ = unix.Close(exitR)
		_ = unix.Close(exitW)
	})

	It("ends once every stream retires when no exit fd is tracked", func() {
		upR, upW := makePipe()
		downR, downW := makePipe()

		r := relay.New(-1)
		r.Add(upR, downW, 0, true, false)

		done := make(chan struct{})
		var status buserr.ExitStatus
		go func() {
			status, _ = r.Serve(deadline.Never)
			close(done)
		}()

		_, err := unix.Write(upW, []byte("x"))
		Expect(err).ToNot(HaveOccurred())
		Expect(unix.Close(upW)).To(Succeed())

		Eventually(done, time.Second).Should(BeClosed())
		Expect(status).To(Equal(buserr.ExitSuccess))

		// AutoClose means the relay already closed upR/downW; only the
		// reader side we still own needs cleanup.
		_ = unix.Close(downR)
	})

	It("aborts a stream on write error without stopping the relay", func() {
		upR, upW := makePipe()
		downR, downW := makePipe()
		exitR, exitW := makePipe()

		// Close the downstream reader so writes to downW fail with EPIPE.
		Expect(unix.Close(downR)).To(Succeed())

		r := relay.New(exitR)
		r.Add(upR, downW, 0, false, false)

		done := make(chan struct{})
		var status buserr.ExitStatus
		go func() {
			status, _ = r.Serve(deadline.Never)
			close(done)
		}()

		_, err := unix.Write(upW, []byte("payload"))
		Expect(err).ToNot(HaveOccurred())

		var statusBuf [4]byte
		binary.LittleEndian.PutUint32(statusBuf[:], uint32(buserr.ExitFailure))
		Eventually(func() error {
			_, werr := unix.Write(exitW, statusBuf[:])
			return werr
		}, time.Second).Should(Succeed())

		Eventually(done, time.Second).Should(BeClosed())
		Expect(status).To(Equal(buserr.ExitFailure))

		_ = unix.Close(upR)
		_ = unix.Close(upW)
		_ = unix.Close(downW)
		_ = unix.Close(exitR)
		_ = unix.Close(exitW)
	})
})
