// This file is part of Aether.
//
// Aether is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Aether is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Aether.  If not, see <https://www.gnu.org/licenses/>.

// Package assert collects debug-only invariant checks that are too cheap to
// skip but too niche for the errkind taxonomy: nothing here changes program
// behaviour outside of a failed check, and every entry point here should be
// considered for debugging or testing purposes only.
package assert

import (
	"bytes"
	"runtime"
	"strconv"
)

// GoroutineID returns an identifier for the calling goroutine. It is
// different between goroutines and consistent for a given goroutine for as
// long as that goroutine is alive, which is exactly what the session
// worker's single-goroutine-owns-the-core invariant needs to check.
func GoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	b = b[:bytes.IndexByte(b, ' ')]
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}

// OnGoroutine reports whether the caller is running on the goroutine
// identified by want. A false result during development means some code
// path reached core I/O from outside the worker loop.
func OnGoroutine(want uint64) bool {
	return GoroutineID() == want
}
