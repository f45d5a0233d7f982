// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage provides the storage abstraction layer for rapport.
//
// Two repositories are defined: ProfileRepository holds survey profiles and
// their vectors, MatchRepository holds directed match edges. Two backends
// implement them: storage/badger (embedded, the default) and storage/sql
// (SQLite or PostgreSQL).
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces:
//
//	profiles, err := badger.NewProfileRepository(backend)  // storage.ProfileRepository
//
// Internal constructors (newProfileRepository, etc.) may return concrete
// types since they're only used within the implementation package.
//
// # Match Edges
//
// An edge is keyed by (source, target). UpsertMatch is a single atomic
// write at the storage boundary: Badger sets a deterministic key inside a
// write transaction and SQL uses INSERT ... ON CONFLICT DO UPDATE. Callers
// never read before writing.
//
// # Usage
//
//	profiles, matches, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
