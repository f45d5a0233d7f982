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

// Package matching selects the best match for a user.
//
// Scoring is cosine similarity per survey field, clamped into [0, 1] and
// expressed as a rounded percentage. Aggregate blends the field scores with
// an optional auxiliary score under the policy named by
// AggregationPolicyVersion. Pick breaks ties on the smaller candidate id.
//
// Engine ties this together for one request: load the requester and the
// candidate pool, embed whatever vectors are missing in one chunked call,
// score candidates on a worker pool, pick, upsert the directed edge and
// explain. Scores are computed fresh on every request.
package matching
