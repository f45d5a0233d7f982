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

package core

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Callers classify failures with errors.Is.
var (
	// ErrValidation indicates a missing or malformed request identifier.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an unknown user or an empty candidate pool.
	ErrNotFound = errors.New("not found")

	// ErrNoCandidates indicates there is nobody to match against.
	// It wraps ErrNotFound so callers may treat both the same way.
	ErrNoCandidates = fmt.Errorf("%w: no candidates available", ErrNotFound)

	// ErrDependency indicates a failure of the embedding provider,
	// the narrative provider or the profile store.
	ErrDependency = errors.New("dependency failure")

	// ErrDimensionMismatch indicates two compared vectors differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Domain validation errors
var (
	// ErrInvalidProfile indicates a UserProfile failed validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrEmptyUserID indicates the user identifier is empty.
	ErrEmptyUserID = errors.New("user id cannot be empty")

	// ErrMalformedUserID indicates the user identifier is too long or contains control characters.
	ErrMalformedUserID = errors.New("user id is malformed")

	// ErrEmptyName indicates the profile name is empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrEmptyAnswer indicates one of the survey answers is empty.
	ErrEmptyAnswer = errors.New("survey answer cannot be empty")

	// ErrFieldEmbeddingCount indicates the profile does not carry one vector per answer.
	ErrFieldEmbeddingCount = errors.New("profile must carry one embedding per answer")
)
