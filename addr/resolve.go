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

package addr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no ancestor of the resolved address exists
// on disk at all.
var ErrNotFound = errors.New("addr: no socket found along address")

// ErrNotSocket is returned when resolution reaches an existing filesystem
// node that is not a UNIX-domain socket.
var ErrNotSocket = errors.New("addr: resolved target is not a socket")

// ResolveAddr rewrites a leading "+" or "/+" in addr to the configured
// services directory (spec.md §3, §6.4). Any other addr is returned
// unchanged.
func ResolveAddr(addr string) string {
	switch {
	case strings.HasPrefix(addr, "/+"):
		return ServicesDir() + "/" + addr[2:]
	case strings.HasPrefix(addr, "+"):
		return ServicesDir() + "/" + addr[1:]
	default:
		return addr
	}
}

// FindServiceTarget walks path's ancestors, dereferencing symlinks at any
// level, until it finds an existing filesystem node. It returns that node's
// path (saddr) and the residual sub-path (spath) consumed above it, such
// that the node joined with spath reconstructs the original path (modulo
// symlink collapse), per spec.md §8 property 2.
func FindServiceTarget(path string) (saddr, spath string, err error) {
	cur := filepath.Clean(path)
	var residual []string

	for {
		fi, lerr := os.Lstat(cur)
		if lerr != nil {
			if !os.IsNotExist(lerr) {
				return "", "", fmt.Errorf("addr: lstat %q: %w", cur, lerr)
			}
			dir, base := filepath.Split(cur)
			dir = filepath.Clean(dir)
			if base == "" || dir == cur {
				return "", "", fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			residual = append([]string{base}, residual...)
			cur = dir
			continue
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			target, rerr := os.Readlink(cur)
			if rerr != nil {
				return "", "", fmt.Errorf("addr: readlink %q: %w", cur, rerr)
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}

		// Only the filesystem root (or ".") was left: nothing along the
		// address exists.
		if len(residual) > 0 && filepath.Dir(cur) == cur {
			return "", "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		saddr = cur
		break
	}

	if len(residual) > 0 {
		spath = "/" + strings.Join(residual, "/")
	}
	return saddr, spath, nil
}

// FindServiceAddr is FindServiceTarget restricted to sockets: it fails with
// ErrNotSocket if the resolved node exists but isn't a UNIX-domain socket.
func FindServiceAddr(path string) (saddr, spath string, err error) {
	saddr, spath, err = FindServiceTarget(path)
	if err != nil {
		return "", "", err
	}
	fi, serr := os.Stat(saddr)
	if serr != nil {
		return "", "", fmt.Errorf("addr: stat %q: %w", saddr, serr)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return "", "", fmt.Errorf("%w: %s", ErrNotSocket, saddr)
	}
	return saddr, spath, nil
}

// Resolve combines ResolveAddr's prefix rewrite with FindServiceAddr's
// ancestor walk — the full address-resolution path a client dial performs.
func Resolve(addr string) (saddr, spath string, err error) {
	return FindServiceAddr(ResolveAddr(addr))
}
