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

package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/descriptor"
)

// ReexecEnvVar, when set in a child's environment, names the Server
// registered via RegisterServer that MaybeRunReexecChild should hand the
// inherited connection to.
const ReexecEnvVar = "RUSSNG_REEXEC_SERVER"

// reexecFD is the well-known ExtraFiles slot (fd 3, the first file after
// stdin/stdout/stderr) the accepted connection is inherited on.
const reexecFD = 3

var (
	registryMu sync.Mutex
	registry   = map[string]*Server{}
)

// RegisterServer makes s available to a re-exec'd child under name. Call
// this during process startup, before MaybeRunReexecChild, for every
// Server configured with VariantFork.
func RegisterServer(name string, s *Server) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = s
}

func lookupServer(name string) *Server {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[name]
}

// MaybeRunReexecChild checks whether this process was launched as a
// fork-per-request child (ReexecEnvVar set); if so it runs the inherited
// connection through the registered Server's serveConn and calls os.Exit,
// never returning. Call this as the first statement in main(), before flag
// parsing — a CLI that never sets up fork-per-request servers can ignore
// it entirely, since it is a no-op when the env var is absent.
func MaybeRunReexecChild() {
	name := os.Getenv(ReexecEnvVar)
	if name == "" {
		return
	}
	os.Exit(runReexecChild(name))
}

func runReexecChild(name string) int {
	srv := lookupServer(name)
	if srv == nil {
		fmt.Fprintf(os.Stderr, "server: reexec: no server registered as %q\n", name)
		return -127 // RUSS_EXIT_SYS_FAILURE, spelled out to avoid importing buserr just for this
	}

	f := os.NewFile(uintptr(reexecFD), "russng-accepted-conn")
	if f == nil {
		fmt.Fprintf(os.Stderr, "server: reexec: fd %d not inherited\n", reexecFD)
		return -127
	}
	defer f.Close()

	rawConn, err := net.FileConn(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: reexec: FileConn: %v\n", err)
		return -127
	}
	uconn, ok := rawConn.(*net.UnixConn)
	if !ok {
		fmt.Fprintf(os.Stderr, "server: reexec: inherited fd is not a unix conn\n")
		return -127
	}

	srv.serveConn(context.Background(), uconn)
	return 0
}

// dispatchFork hands conn off to a freshly re-exec'd child process and
// waits for it, matching the fork variant's "parent closes the accepted
// socket and waits for the child" (spec.md §4.7). See doc.go for why a
// re-exec replaces a bare fork(2) here.
func (s *Server) dispatchFork(conn *net.UnixConn) {
	defer conn.Close()

	connFile, err := conn.File()
	if err != nil {
		s.cfg.logger().Error("server: dispatchFork: conn.File", err)
		return
	}
	defer connFile.Close()

	bin, err := os.Executable()
	if err != nil {
		bin = os.Args[0]
	}
	cmd := exec.Command(bin, os.Args[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), ReexecEnvVar+"="+s.cfg.HandlerName)
	cmd.ExtraFiles = []*os.File{connFile}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		s.cfg.logger().Error("server: dispatchFork: start child", err)
		return
	}
	// The failsafe exit status is the child's responsibility (serveConn
	// always calls SendExit exactly once); the parent only reaps it.
	if err := cmd.Wait(); err != nil {
		s.cfg.logger().Debug("server: fork child exited: " + err.Error())
	}
}

// switchToPeerUser drops the current process's effective uid/gid to the
// connection's peer credentials before invoking the handler (spec.md §4.7
// "auto-switch-user"). This changes process-wide credentials — safe for
// the fork variant (a fresh process per connection) but unsafe to combine
// with the thread variant, where two concurrently-served connections with
// different peer identities would race on the same process's credentials;
// see DESIGN.md for this documented scope limitation.
func switchToPeerUser(cred descriptor.Credentials) error {
	if err := unix.Setresgid(int(cred.Gid), int(cred.Gid), int(cred.Gid)); err != nil {
		return err
	}
	if err := unix.Setresuid(int(cred.Uid), int(cred.Uid), int(cred.Uid)); err != nil {
		return err
	}
	return nil
}
