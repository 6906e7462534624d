package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainPreservesOrderAndEmpties(t *testing.T) {
	q := NewQueue[int]()
	q.Push(3)
	q.Push(1)
	q.Push(2)

	var got []int
	q.Drain(func(v int) { got = append(got, v) })

	assert.Equal(t, []int{3, 1, 2}, got)
	assert.Zero(t, q.Len())
}

func TestDrainDeliversEventsPushedDuringDrain(t *testing.T) {
	q := NewQueue[string]()
	q.Push("a")

	var got []string
	q.Drain(func(v string) {
		got = append(got, v)
		if v == "a" {
			q.Push("b")
		}
	})

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Zero(t, q.Len())
}
