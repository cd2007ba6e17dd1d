package orderedset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderedSet(t *testing.T) {
	for _, tt := range []struct {
		name string
		set  OrderedSet[string]
		key  string

		wantSet    OrderedSet[string]
		wantIndex  int32
		wantExists bool
	}{
		{
			name: "first value",
			set:  OrderedSet[string]{},
			key:  "samples",

			wantIndex:  0,
			wantSet:    OrderedSet[string]{"samples": 0},
			wantExists: false,
		},
		{
			name: "existing value keeps its index",
			set:  OrderedSet[string]{"samples": 0, "count": 1},
			key:  "count",

			wantIndex:  1,
			wantSet:    OrderedSet[string]{"samples": 0, "count": 1},
			wantExists: true,
		},
		{
			name: "new value appends",
			set:  OrderedSet[string]{"samples": 0},
			key:  "cpu",

			wantIndex:  1,
			wantSet:    OrderedSet[string]{"samples": 0, "cpu": 1},
			wantExists: false,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			i, exists := tt.set.AddWithCheck(tt.key)
			assert.Equal(t, tt.wantIndex, i)
			assert.Equal(t, tt.wantSet, tt.set)
			assert.Equal(t, tt.wantExists, exists)
		})
	}
}

func TestOrderedSetToSlice(t *testing.T) {
	set := OrderedSet[string]{}
	set.Add("")
	set.Add("cpu")
	set.Add("nanoseconds")
	set.Add("cpu")

	assert.Equal(t, []string{"", "cpu", "nanoseconds"}, set.ToSlice())
}
