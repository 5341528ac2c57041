package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int // partition lengths
	}{
		{"empty", 0, 100, nil},
		{"under one batch", 5, 100, []int{5}},
		{"exact batch", 100, 100, []int{100}},
		{"one over", 101, 100, []int{100, 1}},
		{"multiple full", 250, 100, []int{100, 100, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"size below one clamps", 3, 0, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}

			parts := Partition(items, tt.size)
			require.Len(t, parts, len(tt.want))
			for i, p := range parts {
				assert.Len(t, p, tt.want[i])
			}

			// Concatenating partitions reproduces the input exactly.
			var flat []int
			for _, p := range parts {
				flat = append(flat, p...)
			}
			assert.Equal(t, items, append([]int{}, flat...))
		})
	}
}

func TestPartition_PreservesOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	parts := Partition(items, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, parts)
}
