// Package slicetools holds small generic helpers that drop entries from a
// slice while preserving the order of the remaining elements.
package slicetools

import "sort"

// DeleteElement removes the element at index from slice, preserving order.
func DeleteElement[T any](slice []T, index int) []T {
	return append(slice[:index], slice[index+1:]...)
}

// DeleteElements removes every element whose index appears in indices,
// preserving the order of the elements that remain.
func DeleteElements[T any](slice []T, indices []int) []T {
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	for _, index := range sorted {
		slice = append(slice[:index], slice[index+1:]...)
	}
	return slice
}

// CompactNils returns items with every nil pointer removed, preserving
// the order of the remaining, non-nil entries.
func CompactNils[T any](items []*T) []*T {
	out := make([]*T, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}
