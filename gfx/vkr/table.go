// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

// table maps driver handles onto Vulkan objects of one kind.
type table[T any] struct {
	next  uint64
	items map[uint64]T
}

func (t *table[T]) add(v T) uint64 {
	if t.items == nil {
		t.items = make(map[uint64]T)
	}
	t.next++
	t.items[t.next] = v
	return t.next
}

// get returns the zero value, which Vulkan treats as a null handle,
// for unknown keys.
func (t *table[T]) get(h uint64) T {
	return t.items[h]
}

func (t *table[T]) remove(h uint64) (T, bool) {
	v, ok := t.items[h]
	delete(t.items, h)
	return v, ok
}

func (t *table[T]) len() int {
	return len(t.items)
}
