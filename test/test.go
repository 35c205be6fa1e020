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

// Package test collects small assertion helpers shared by every package's
// test files, in place of reaching for a third-party assertion library for
// the handful of comparisons the test suite actually needs.
package test

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

// ExpectFailure requires v to represent a failure: a non-nil error or a
// boolean false.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case error:
		if x == nil {
			t.Errorf("expected failure but error is nil")
		}
	case bool:
		if x {
			t.Errorf("expected failure but got true")
		}
	default:
		t.Errorf("ExpectFailure: unsupported type %T", v)
	}
}

// ExpectSuccess requires v to represent a success: a nil error or a boolean
// true.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	switch x := v.(type) {
	case error:
		if x != nil {
			t.Errorf("expected success but got error: %v", x)
		}
	case bool:
		if !x {
			t.Errorf("expected success but got false")
		}
	case nil:
		// nil error passed through an interface{}-typed nil
	default:
		t.Errorf("ExpectSuccess: unsupported type %T", v)
	}
}

// ExpectedFailure is an alias of ExpectFailure kept for call sites written
// with the adjectival form.
func ExpectedFailure(t *testing.T, v interface{}) {
	t.Helper()
	ExpectFailure(t, v)
}

// ExpectedSuccess is an alias of ExpectSuccess kept for call sites written
// with the adjectival form.
func ExpectedSuccess(t *testing.T, v interface{}) {
	t.Helper()
	ExpectSuccess(t, v)
}

// Equate is a general-purpose deep-equality check.
func Equate(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v (%T), want %v (%T)", got, got, want, want)
	}
}

// ExpectEquality is an alias of Equate kept for call-site readability at
// assertion sites that are checking equality rather than general values.
func ExpectEquality(t *testing.T, got, want interface{}) {
	t.Helper()
	Equate(t, got, want)
}

// ExpectInequality requires got and want to differ.
func ExpectInequality(t *testing.T, got, want interface{}) {
	t.Helper()
	if reflect.DeepEqual(got, want) {
		t.Errorf("got %v, did not expect it to equal %v", got, want)
	}
}

// ExpectApproximate requires got to be within tolerance of want, where
// tolerance is a fraction of want (0.1 allows a difference of 10% of want).
func ExpectApproximate(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > math.Abs(want*tolerance) {
		t.Errorf("got %v, want %v (tolerance %v)", got, want, tolerance)
	}
}

// NewCappedWriter returns a CappedWriter of the given capacity.
func NewCappedWriter(capacity int) (*CappedWriter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capped writer: capacity must be positive")
	}
	return &CappedWriter{capacity: capacity}, nil
}

// NewRingWriter returns a RingWriter of the given capacity.
func NewRingWriter(capacity int) (*RingWriter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring writer: capacity must be positive")
	}
	return &RingWriter{capacity: capacity, buf: make([]byte, 0, capacity)}, nil
}
