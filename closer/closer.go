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

package closer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrClosed is returned by Close when the Closer has already closed.
var ErrClosed = errors.New("closer: already closed")

// pollInterval is how often the background goroutine checks ctx.Done.
const pollInterval = 100 * time.Millisecond

// Closer manages a set of io.Closer instances that close together.
type Closer interface {
	// Add registers one or more io.Closer instances. A no-op once closed;
	// nil entries are accepted but ignored.
	Add(clo ...io.Closer)

	// Get returns a snapshot of the registered closers.
	Get() []io.Closer

	// Len returns the number of registered closers.
	Len() int

	// Close closes every registered closer and returns their combined
	// error (via errors.Join), closing each even if an earlier one fails.
	// Subsequent calls return ErrClosed.
	Close() error
}

type mapCloser struct {
	mu     sync.Mutex
	items  []io.Closer
	closed bool
	cancel context.CancelFunc
}

// New returns a Closer that also closes automatically when ctx is done.
func New(ctx context.Context) Closer {
	cctx, cancel := context.WithCancel(ctx)
	c := &mapCloser{cancel: cancel}

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-cctx.Done():
				_ = c.Close()
				return
			case <-ticker.C:
			}
		}
	}()

	return c
}

func (c *mapCloser) Add(clo ...io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, cl := range clo {
		if cl != nil {
			c.items = append(c.items, cl)
		}
	}
}

func (c *mapCloser) Get() []io.Closer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]io.Closer, len(c.items))
	copy(out, c.items)
	return out
}

func (c *mapCloser) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *mapCloser) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	c.cancel()

	var errs []error
	for _, cl := range items {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
