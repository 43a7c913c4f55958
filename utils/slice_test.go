package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	even := Filter([]int{1, 2, 3, 4, 5, 6}, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4, 6}, even)
	assert.Empty(t, Filter([]int{}, func(n int) bool { return true }))
}

func TestMap(t *testing.T) {
	doubled := Map([]int{1, 2, 3}, func(n int) int { return n * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)
}

func TestFind(t *testing.T) {
	items := []string{"lunch", "rest", "other"}
	found := Find(items, func(s string) bool { return s == "rest" })
	assert.NotNil(t, found)
	assert.Equal(t, "rest", *found)

	assert.Nil(t, Find(items, func(s string) bool { return s == "missing" }))
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy([]int{1, 2, 3, 4, 5}, func(n int) string {
		if n%2 == 0 {
			return "even"
		}
		return "odd"
	})
	assert.Equal(t, []int{2, 4}, groups["even"])
	assert.Equal(t, []int{1, 3, 5}, groups["odd"])
}
