// Copyright 2026 The Butcher Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package butcher

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// sortedKeys returns the map keys in sorted order. Suite and test
// registries are hash maps, so every user-visible walk sorts for a
// stable output order.
func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
