// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import "errors"

var (
	// ErrMalformedRecord marks a source record missing a required key field.
	// Synthesis cannot proceed for that entity; the caller skips it and counts
	// the failure. It is never retried.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrTransientSource marks an upstream collection failure for a single
	// company or date. It is treated as "no data today" and never aborts a run.
	ErrTransientSource = errors.New("transient source failure")

	// ErrStoreUnavailable marks a graph store connection failure. It is fatal
	// to the run and triggers rollback of the run's per-date writes.
	ErrStoreUnavailable = errors.New("graph store unavailable")

	// ErrInterrupted marks an external termination request observed at a step
	// boundary. Handled identically to a fatal store error.
	ErrInterrupted = errors.New("run interrupted")
)
