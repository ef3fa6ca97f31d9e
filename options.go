// go-bitbus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-bitbus.
//
// go-bitbus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-bitbus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-bitbus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package bitbus

// Option is a functional option for configuring an Analyzer
type Option func(*Analyzer) error

// WithResults adds sinks that receive every committed frame, in order
func WithResults(results ...Results) Option {
	return func(a *Analyzer) error {
		for _, r := range results {
			if r == nil {
				return ErrNilResults
			}
			a.results = append(a.results, r)
		}
		return nil
	}
}

// WithProgressCallback sets the callback invoked after every frame
func WithProgressCallback(callback ProgressCallback) Option {
	return func(a *Analyzer) error {
		a.onProgress = callback
		return nil
	}
}
