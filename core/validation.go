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
	"fmt"
	"strings"
	"unicode"
)

// MaxUserIDLength bounds the size of an opaque user identifier.
const MaxUserIDLength = 128

// ValidateUserID checks that an identifier is present and well formed.
// Identifiers are opaque, but they are used in storage keys and URLs.
func ValidateUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyUserID)
	}
	if len(id) > MaxUserIDLength {
		return fmt.Errorf("%w: %w: longer than %d bytes", ErrValidation, ErrMalformedUserID, MaxUserIDLength)
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %w: contains control characters", ErrValidation, ErrMalformedUserID)
	}
	return nil
}

// ValidateProfile validates a UserProfile according to domain rules.
//
// Validation rules:
//   - UserID must be a valid identifier
//   - Name must not be empty
//   - All survey answers must be present
//   - FieldEmbeddings, when set, must hold one vector per answer
//
// NOT validated:
//   - Vector dimensionality (checked when vectors are compared)
//   - AuxiliaryEmbedding (optional)
func ValidateProfile(profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile is nil", ErrInvalidProfile)
	}

	if err := ValidateUserID(profile.UserID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrEmptyName)
	}

	for i, answer := range profile.Answers {
		if strings.TrimSpace(answer) == "" {
			return fmt.Errorf("%w: %w: question %d", ErrInvalidProfile, ErrEmptyAnswer, i+1)
		}
	}

	if len(profile.FieldEmbeddings) != 0 && !profile.HasFieldEmbeddings() {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrFieldEmbeddingCount)
	}

	return nil
}
