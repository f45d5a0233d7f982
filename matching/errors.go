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

package matching

import "errors"

var (
	// ErrProfileRepositoryRequired indicates a nil profile repository was provided.
	ErrProfileRepositoryRequired = errors.New("profile repository is required")

	// ErrMatchRepositoryRequired indicates a nil match repository was provided.
	ErrMatchRepositoryRequired = errors.New("match repository is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrMissingEmbeddings indicates a profile reached scoring without one vector per answer.
	ErrMissingEmbeddings = errors.New("profile is missing field embeddings")
)
