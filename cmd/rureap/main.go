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

// Command rureap waits for a given pid to exit and then unlinks a given
// socket path (spec.md §6.3), cleaning up after a ruspawn-launched server
// that isn't this process's child and so can't be reaped with wait(2).
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func main() {
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:                   "rureap <pid> <socket-path>",
		Short:                 "wait for pid to exit, then unlink socket-path",
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		Args:                  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("rureap: invalid pid %q: %w", args[0], err)
			}
			return reap(pid, args[1], pollInterval)
		},
	}
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 200*time.Millisecond, "how often to probe the pid for liveness")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rureap:", err)
		os.Exit(1)
	}
}

// reap polls pid via kill(pid, 0) until it no longer exists, then removes
// sockPath. A pid not owned by this process can't be wait(2)'d, so polling
// is the only portable way to notice it has exited.
func reap(pid int, sockPath string, pollInterval time.Duration) error {
	for {
		err := unix.Kill(pid, 0)
		if err == unix.ESRCH {
			break
		}
		if err != nil && err != unix.EPERM {
			return fmt.Errorf("rureap: kill(%d, 0): %w", pid, err)
		}
		time.Sleep(pollInterval)
	}

	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rureap: remove %q: %w", sockPath, err)
	}
	return nil
}
