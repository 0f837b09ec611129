// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package iterx adapts go-git style iterators to range-over-func sequences.
package iterx

import (
	"errors"
	"iter"
)

// Nexter is an iterator whose Next returns sentinel once exhausted.
type Nexter[T any] interface {
	Next() (T, error)
}

// ToSeq2 yields each value of it. Iteration ends at sentinel, or after the
// first other error, which is yielded with a zero value.
func ToSeq2[T any](it Nexter[T], sentinel error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			val, err := it.Next()
			if errors.Is(err, sentinel) {
				return
			}
			if !yield(val, err) || err != nil {
				return
			}
		}
	}
}

// Map drains seq, applying f to each value.
func Map[T, U any](seq iter.Seq2[T, error], f func(T) U) ([]U, error) {
	var out []U
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, f(v))
	}
	return out, nil
}
