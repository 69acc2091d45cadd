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

package forwarder

import (
	"bytes"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/deadline"
	"github.com/johnm-dev/russng-sub001/logging"
)

// Mode selects how a Forwarder reads from its input.
type Mode int

const (
	// ModeChunk copies up to BlockSize bytes per read (russ_fwd "how=0").
	ModeChunk Mode = iota
	// ModeLine copies one line at a time, inclusive of the trailing '\n'
	// (russ_fwd "how=1").
	ModeLine
)

// Reason classifies why a Forwarder stopped (spec.md §4.5).
type Reason int

const (
	ReasonEOF Reason = iota
	ReasonError
	ReasonTimeout
	ReasonCount
	ReasonInHup
	ReasonOutHup
)

func (r Reason) String() string {
	switch r {
	case ReasonEOF:
		return "eof"
	case ReasonError:
		return "error"
	case ReasonTimeout:
		return "timeout"
	case ReasonCount:
		return "count"
	case ReasonInHup:
		return "in_hup"
	case ReasonOutHup:
		return "out_hup"
	default:
		return "unknown"
	}
}

// ClosePolicy selects which fds a Forwarder closes when it exits
// (RUSS_FWD_CLOSE_IN / _OUT / _INOUT).
type ClosePolicy int

const (
	CloseNone  ClosePolicy = 0
	CloseIn    ClosePolicy = 1 << 0
	CloseOut   ClosePolicy = 1 << 1
	CloseInOut             = CloseIn | CloseOut
)

// Config describes one forwarder's contract.
type Config struct {
	InFD      int
	OutFD     int
	Count     int64 // -1 means unbounded
	BlockSize int
	Mode      Mode
	Close     ClosePolicy
	Deadline  deadline.Deadline

	// Logger receives an Error for a real ReasonError stop (SPEC_FULL.md
	// §A.1: "forwarder ... logs through the logging package"); nil uses
	// logging.Default().
	Logger logging.Logger
}

func (c Config) logger() logging.Logger {
	if c.Logger == nil {
		return logging.Default()
	}
	return c.Logger
}

// Forwarder copies Config.InFD to Config.OutFD on its own goroutine until
// EOF, error, its byte budget is exhausted, a hangup is observed, or its
// deadline expires.
type Forwarder struct {
	cfg  Config
	done chan struct{}
	n    int64
	rsn  Reason
	err  error
}

// New creates a Forwarder in Config's terms. BlockSize defaults to 64KiB
// when zero or negative.
func New(cfg Config) *Forwarder {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 64 * 1024
	}
	return &Forwarder{cfg: cfg, done: make(chan struct{})}
}

// Start launches the copy loop on its own goroutine.
func (f *Forwarder) Start() {
	go f.run()
}

// Join blocks until the forwarder has stopped and returns the number of
// bytes copied, the reason it stopped, and any error observed.
func (f *Forwarder) Join() (n int64, reason Reason, err error) {
	<-f.done
	return f.n, f.rsn, f.err
}

// Launch starts fwds concurrently, one goroutine per forwarder under a
// shared errgroup.Group, mirroring russ_run_forwarders' one-thread-per-pair
// launch (original_source russlib/forwarder.c). Each Forwarder can still be
// Join()'d individually for its own byte count/reason; the returned group's
// Wait blocks until every one of fwds has stopped and surfaces the first
// ReasonError failure any of them hit.
func Launch(fwds ...*Forwarder) *errgroup.Group {
	g := new(errgroup.Group)
	for _, f := range fwds {
		f := f
		g.Go(func() error {
			f.run()
			if f.rsn == ReasonError {
				return f.err
			}
			return nil
		})
	}
	return g
}

func (f *Forwarder) run() {
	defer close(f.done)
	defer f.applyClosePolicy()
	defer func() {
		if f.rsn == ReasonError {
			f.cfg.logger().Error("forwarder: stopped", f.err)
		}
	}()

	var pending []byte
	readAny := false
	for {
		if f.cfg.Count >= 0 && f.n >= f.cfg.Count {
			f.rsn = ReasonCount
			return
		}

		if pready, hup, err := pollOne(f.cfg.InFD, unix.POLLIN, f.cfg.Deadline); err != nil {
			if err == deadline.ErrTimeout {
				f.rsn = ReasonTimeout
			} else {
				f.rsn = ReasonError
				f.err = err
			}
			return
		} else if hup && !pready {
			// A drained pipe whose writer has closed polls as POLLHUP alone,
			// so after input has been read this is the end of the stream.
			if readAny {
				f.rsn = ReasonEOF
			} else {
				f.rsn = ReasonInHup
			}
			return
		}

		chunk, rerr := f.readChunk()
		if rerr != nil {
			f.rsn = ReasonError
			f.err = rerr
			return
		}
		if len(chunk) == 0 {
			f.rsn = ReasonEOF
			return
		}
		readAny = true

		if f.cfg.Mode == ModeLine {
			pending = append(pending, chunk...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx+1]
				if werr := f.writeAll(line); werr != nil {
					if werr == errOutHup {
						f.rsn = ReasonOutHup
					} else {
						f.rsn = ReasonError
						f.err = werr
					}
					return
				}
				f.n += int64(len(line))
				pending = pending[idx+1:]
			}
			continue
		}

		if werr := f.writeAll(chunk); werr != nil {
			if werr == errOutHup {
				f.rsn = ReasonOutHup
			} else {
				f.rsn = ReasonError
				f.err = werr
			}
			return
		}
		f.n += int64(len(chunk))
	}
}

// readChunk reads up to BlockSize bytes (less if Count bounds it further).
func (f *Forwarder) readChunk() ([]byte, error) {
	want := f.cfg.BlockSize
	if f.cfg.Count >= 0 {
		if remaining := f.cfg.Count - f.n; int64(want) > remaining {
			want = int(remaining)
		}
	}
	buf := make([]byte, want)
	for {
		n, err := unix.Read(f.cfg.InFD, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, err
		}
		return buf[:n], nil
	}
}

var errOutHup = unix.EPIPE

func (f *Forwarder) writeAll(p []byte) error {
	for len(p) > 0 {
		nw, err := unix.Write(f.cfg.OutFD, p)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EPIPE {
				return errOutHup
			}
			return err
		}
		p = p[nw:]
	}
	return nil
}

func (f *Forwarder) applyClosePolicy() {
	if f.cfg.Close&CloseIn != 0 {
		_ = unix.Close(f.cfg.InFD)
	}
	if f.cfg.Close&CloseOut != 0 {
		_ = unix.Close(f.cfg.OutFD)
	}
}
