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

// Command ruspawn creates a fresh socket path, binds and listens on it, and
// execs a server binary with that listening socket inherited on fd 3,
// printing the socket path to standard output once the server is launched
// (spec.md §6.3). Only ruspawn is built; rustart is the same binary under a
// second name (a copy or symlink), matching the upstream pair of binaries.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/johnm-dev/russng-sub001/addr"
)

func main() {
	var socketDir string

	cmd := &cobra.Command{
		Use:                   "ruspawn [options] -- <server-binary> [server-arg...]",
		Short:                 "bind a fresh socket and exec a server on it",
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		Args:                  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sockPath, err := spawn(socketDir, args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Println(sockPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&socketDir, "socket-dir", addr.ServicesDir(), "directory the fresh socket path is created under")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ruspawn:", err)
		os.Exit(1)
	}
}

// spawn binds a fresh socket under dir, execs bin with that listener
// inherited as its first ExtraFiles entry (fd 3, matching server.reexecFD's
// fork-child contract), and returns the socket's path without waiting for
// bin to exit (spec.md §6.3: "print the socket path on standard output").
func spawn(dir, bin string, binArgs []string) (string, error) {
	name, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("ruspawn: generate socket name: %w", err)
	}
	sockPath := filepath.Join(dir, "ruspawn-"+name+".sock")

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return "", fmt.Errorf("ruspawn: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: sockPath}); err != nil {
		_ = unix.Close(fd)
		return "", fmt.Errorf("ruspawn: bind %q: %w", sockPath, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(sockPath)
		return "", fmt.Errorf("ruspawn: listen %q: %w", sockPath, err)
	}

	lnFile := os.NewFile(uintptr(fd), sockPath)
	defer lnFile.Close()

	cmdv := exec.Command(bin, binArgs...)
	cmdv.Stdin = os.Stdin
	cmdv.Stdout = os.Stdout
	cmdv.Stderr = os.Stderr
	cmdv.ExtraFiles = []*os.File{lnFile}
	cmdv.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmdv.Start(); err != nil {
		_ = os.Remove(sockPath)
		return "", fmt.Errorf("ruspawn: start %q: %w", bin, err)
	}
	// The spawned server owns the listener from here; rureap is the
	// intended way to later wait on cmdv.Process.Pid and unlink sockPath.
	_ = cmdv.Process.Release()

	return sockPath, nil
}
