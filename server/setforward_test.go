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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/client"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/request"
	"github.com/johnm-dev/russng-sub001/svctree"
)

var _ = Describe("SetThenForward", func() {
	It("rewrites argv and spath per the /index=value/./residual convention, then forwards (S5)", func() {
		dir := GinkgoT().TempDir()
		downstreamPath := dir + "/downstream.sock"
		upstreamPath := dir + "/upstream.sock"

		checkHandler := func(ctx context.Context, sc *ServerConn) error {
			req := sc.Request()
			if req.Spath != "/foo" {
				return buserr.New(buserr.KindApplication, buserr.ExitStatus(8), "unexpected spath: "+req.Spath)
			}
			if len(req.Args) != 1 || req.Args[0] != "cat" {
				return buserr.New(buserr.KindApplication, buserr.ExitStatus(9), "unexpected argv[0]")
			}
			return nil
		}
		downTree := svctree.New[Handler]("", checkHandler)
		downSrv := New(Config{SocketPath: downstreamPath, Variant: VariantThread}, downTree)
		Expect(downSrv.Listen()).To(Succeed())

		setHandler := func(ctx context.Context, sc *ServerConn) error {
			return SetThenForward(ctx, sc, downstreamPath, deadline.Never)
		}
		upTree := svctree.New[Handler]("", setHandler)
		upTree.SetAutoanswer(false)
		upSrv := New(Config{SocketPath: upstreamPath, Variant: VariantThread}, upTree)
		Expect(upSrv.Listen()).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		downDone := make(chan error, 1)
		upDone := make(chan error, 1)
		go func() { downDone <- downSrv.Serve(ctx) }()
		go func() { upDone <- upSrv.Serve(ctx) }()

		cl, err := client.Dial(upstreamPath, deadline.Never)
		Expect(err).ToNot(HaveOccurred())

		req := request.New("execute", "/0=cat/./foo", nil, nil)
		Expect(cl.SendRequest(req, deadline.Never)).To(Succeed())
		Expect(cl.ReceiveDescriptors(deadline.Never)).To(Succeed())
		Expect(cl.Stream()).To(Succeed())

		status, werr := cl.WaitExit(deadline.Never)
		Expect(werr).ToNot(HaveOccurred())
		Expect(status).To(Equal(buserr.ExitSuccess))

		Expect(cl.Close()).To(Succeed())
		cancel()
		Eventually(upDone).Should(Receive(BeNil()))
		Eventually(downDone).Should(Receive(BeNil()))
		Expect(upSrv.Close()).To(Succeed())
		Expect(downSrv.Close()).To(Succeed())
	})
})
