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

// Package server is the HTTP API in front of the match engine.
//
//	GET  /api/match?userId=ID     best match, explanation and warning
//	POST /api/users               survey submission, returns the new userId
//	GET  /api/users/{id}/matches  recorded outgoing matches
//	GET  /health                  liveness
//
// Errors are returned as {"error": "..."}. Validation failures map to 400,
// unknown users and empty pools to 404, provider failures to 502 and
// expired request deadlines to 504.
package server
