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

// Package sqlstore implements the storage repositories on database/sql,
// with SQLite (modernc.org/sqlite, pure Go) and PostgreSQL (lib/pq) drivers.
//
// Queries are written with ? placeholders and rebound to $n for PostgreSQL.
// Match edges are upserted with INSERT ... ON CONFLICT DO UPDATE, which both
// dialects execute atomically.
package sqlstore
