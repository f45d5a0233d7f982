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

package reembed

import (
	"context"

	"github.com/poiesic/rapport/core"
	"github.com/poiesic/rapport/storage"
)

// DefaultBatchSize is the number of profiles read and embedded together.
const DefaultBatchSize = 100

// ProfileIterator pages through every stored profile in userId order.
type ProfileIterator struct {
	repo      storage.ProfileRepository
	batchSize int
}

// NewProfileIterator creates an iterator reading batchSize profiles per page.
func NewProfileIterator(repo storage.ProfileRepository, batchSize int) *ProfileIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ProfileIterator{repo: repo, batchSize: batchSize}
}

// ForEach calls fn with each page until the store is exhausted or fn fails.
// The cursor is the last userId seen, so pages stay stable while fn
// rewrites the profiles it was given.
func (it *ProfileIterator) ForEach(ctx context.Context, fn func([]*core.UserProfile) error) error {
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.repo.ListProfiles(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		after = page[len(page)-1].UserID

		if err := fn(page); err != nil {
			return err
		}
		if len(page) < it.batchSize {
			return nil
		}
	}
}

// Count returns the number of stored profiles.
func (it *ProfileIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(page []*core.UserProfile) error {
		total += len(page)
		return nil
	})
	return total, err
}
