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
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/johnm-dev/russng-sub001/buserr"
	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/rlimit"
	"github.com/johnm-dev/russng-sub001/svctree"
)

// Server owns a dispatch tree and a listening socket, shared read-only
// across every accepted connection once constructed (spec.md §5: "The
// dispatch tree, listener, and server object are constructed in a single
// execution context and read-only thereafter").
type Server struct {
	cfg      Config
	tree     *svctree.Node[Handler]
	listener *net.UnixListener

	wg sync.WaitGroup
}

// New builds a Server over tree. tree's root is typically an
// autoanswer=false virtual node or a plain autoanswer=true leaf, per
// spec.md §4.3.
func New(cfg Config, tree *svctree.Node[Handler]) *Server {
	if cfg.MaxMatchedPathLen <= 0 {
		cfg.MaxMatchedPathLen = 4096
	}
	return &Server{cfg: cfg, tree: tree}
}

// Listen binds the configured UNIX-domain socket, applying the stale-entry
// recovery spec.md §5 describes: EADDRINUSE is tolerated only when a probe
// connect fails (no one is actually accepting there), in which case the
// stale socket file is unlinked and bind is retried exactly once.
func (s *Server) Listen() error {
	if s.cfg.MaxOpenFiles > 0 {
		if _, _, rerr := rlimit.NoFile(s.cfg.MaxOpenFiles); rerr != nil {
			s.cfg.logger().Error("server: raise RLIMIT_NOFILE", rerr)
		}
	}

	addr := &net.UnixAddr{Name: s.cfg.SocketPath, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		if !errors.Is(err, syscall.EADDRINUSE) {
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: listen", err)
		}
		probe, perr := net.DialTimeout("unix", s.cfg.SocketPath, 200*time.Millisecond)
		if perr == nil {
			_ = probe.Close()
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure,
				fmt.Sprintf("server: %s is in use by an active listener", s.cfg.SocketPath))
		}
		if rerr := os.Remove(s.cfg.SocketPath); rerr != nil {
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: remove stale socket", rerr)
		}
		ln, err = net.ListenUnix("unix", addr)
		if err != nil {
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: listen retry", err)
		}
	}
	if s.cfg.SocketMode != 0 {
		if cerr := os.Chmod(s.cfg.SocketPath, s.cfg.SocketMode); cerr != nil {
			_ = ln.Close()
			return cerr
		}
	}
	s.listener = ln
	return nil
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Serve runs the accept loop until ctx is cancelled or a non-timeout
// accept error occurs, dispatching each connection per s.cfg.Variant
// (spec.md §4.7).
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("server: Listen must be called before Serve")
	}
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		default:
		}

		if s.cfg.AcceptDeadline != deadline.Never {
			_ = s.listener.SetDeadline(timeFromDeadline(s.cfg.AcceptDeadline))
		}
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
			}
			return buserr.New(buserr.KindTransport, buserr.ExitSysFailure, "server: accept", err)
		}

		switch s.cfg.Variant {
		case VariantFork:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.dispatchFork(conn)
			}()
		default:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.serveConn(ctx, conn)
			}()
		}
	}
}

// serveConn runs the full per-connection sequence — credential read,
// match-client-user check, request parse, dispatch, answer, handler,
// failsafe exit, close — shared by both scheduling variants (the thread
// variant runs it inline in a goroutine; the fork variant's re-exec'd
// child runs it standalone via runReexecChild).
func (s *Server) serveConn(ctx context.Context, conn *net.UnixConn) {
	sc := newServerConn(conn)
	logger := s.cfg.logger().WithFields(map[string]any{"trace_id": sc.TraceID})

	if err := sc.readCredentials(); err != nil {
		logger.Warn("server: credential read failed: " + err.Error())
		_ = sc.Close()
		return
	}

	if s.cfg.MatchClientUser && sc.cred.Uid != uint32(os.Getuid()) {
		logger.Warn("server: rejecting call from non-matching uid")
		_ = sc.Close()
		return
	}

	if err := sc.readRequest(s.cfg.RequestDeadline); err != nil {
		logger.Warn("server: request read failed: " + err.Error())
		_ = sc.Close()
		return
	}

	node, matchedPath, err := svctree.Find(s.tree, sc.req.Spath, s.cfg.MaxMatchedPathLen)
	if err != nil {
		logger.Warn(fmt.Sprintf("server: no service for spath %q: %v", sc.req.Spath, err))
		_ = sc.Close()
		return
	}
	sc.mu.Lock()
	sc.matchedPath = matchedPath
	sc.mu.Unlock()

	if s.cfg.AutoSwitchUser {
		if err := switchToPeerUser(sc.cred); err != nil {
			_ = sc.Fatal("failed to switch user", buserr.ExitSysFailure)
			return
		}
	}

	// Autoanswer nodes get their data/exit pipes created and handed off
	// here; autoanswer=false nodes (pass-through, set) own their own
	// answer sequence and must call it themselves from within the
	// handler, including the matching markServing (spec.md §4.4).
	if node.Autoanswer() {
		if err := sc.answer(deadline.Never); err != nil {
			logger.Warn("server: answer failed: " + err.Error())
			_ = sc.Close()
			return
		}
		if err := sc.markServing(); err != nil {
			logger.Warn("server: markServing failed: " + err.Error())
			_ = sc.Close()
			return
		}
	}

	handler := node.Handler()
	var herr error
	if handler != nil {
		herr = handler(ctx, sc)
	} else if node.Autoanswer() {
		herr = buserr.New(buserr.KindApplication, buserr.ExitSysFailure, "server: node has no handler")
	}

	sc.mu.Lock()
	alreadySent := sc.exitSent
	sc.mu.Unlock()
	if !alreadySent {
		_ = sc.SendExit(buserr.ExitStatusOf(herr))
	}
	_ = sc.Close()
}
