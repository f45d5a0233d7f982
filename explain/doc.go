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

// Package explain turns a selected match into a short rationale.
//
// The Assembler renders both users' answers and per-field scores into a
// prompt, sends it to an ai.Narrator and parses the reply with Parse.
// Parse looks for "Similarities:" and "Differences:" sections and collects
// their bullet or numbered lines. Output it cannot structure is kept as
// the narrative, so a malformed reply never fails a match.
package explain
