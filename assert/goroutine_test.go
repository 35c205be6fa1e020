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

package assert

import (
	"sync"
	"testing"
)

func TestOnGoroutineTrueForCallingGoroutine(t *testing.T) {
	if !OnGoroutine(GoroutineID()) {
		t.Fatal("expected OnGoroutine to be true for the calling goroutine's own ID")
	}
}

func TestGoroutineIDDiffersAcrossGoroutines(t *testing.T) {
	mine := GoroutineID()

	var wg sync.WaitGroup
	var other uint64
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = GoroutineID()
	}()
	wg.Wait()

	if other == mine {
		t.Fatalf("expected distinct goroutine IDs, got %d for both", mine)
	}
	if OnGoroutine(other) {
		t.Fatal("expected OnGoroutine(other) to be false from the main goroutine")
	}
}
