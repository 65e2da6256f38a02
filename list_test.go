package dnssim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkedListPushBackAndLen(t *testing.T) {
	var l linkedList[string]
	a := newNode("a")
	b := newNode("b")
	l.pushBack(a)
	l.pushBack(b)
	require.Equal(t, 2, l.Len())

	var order []string
	l.forEach(func(n *node[string]) bool {
		order = append(order, n.val)
		return true
	})
	require.Equal(t, []string{"a", "b"}, order)
}

func TestLinkedListRemove(t *testing.T) {
	var l linkedList[int]
	a, b, c := newNode(1), newNode(2), newNode(3)
	l.pushBack(a)
	l.pushBack(b)
	l.pushBack(c)

	l.remove(b)
	require.Equal(t, 2, l.Len())

	var order []int
	l.forEach(func(n *node[int]) bool {
		order = append(order, n.val)
		return true
	})
	require.Equal(t, []int{1, 3}, order)
}

func TestLinkedListTryRemoveNotMember(t *testing.T) {
	var l1, l2 linkedList[int]
	n := newNode(1)
	l1.pushBack(n)
	l2.tryRemove(n) // no-op, n belongs to l1
	require.Equal(t, 1, l1.Len())
	require.Equal(t, 0, l2.Len())
}

func TestLinkedListPushBackMovesBetweenLists(t *testing.T) {
	var l1, l2 linkedList[int]
	n := newNode(1)
	l1.pushBack(n)
	require.Equal(t, 1, l1.Len())

	l2.pushBack(n) // moving the same node onto a different list detaches it from l1
	require.Equal(t, 0, l1.Len())
	require.Equal(t, 1, l2.Len())
}

func TestLinkedListDrainFIFO(t *testing.T) {
	var l linkedList[int]
	l.pushBack(newNode(1))
	l.pushBack(newNode(2))
	l.pushBack(newNode(3))

	var drained []int
	l.drain(func(n *node[int]) {
		drained = append(drained, n.val)
	})
	require.Equal(t, []int{1, 2, 3}, drained)
	require.Equal(t, 0, l.Len())
}

func TestLinkedListForEachEarlyExit(t *testing.T) {
	var l linkedList[int]
	l.pushBack(newNode(1))
	l.pushBack(newNode(2))
	l.pushBack(newNode(3))

	var visited []int
	l.forEach(func(n *node[int]) bool {
		visited = append(visited, n.val)
		return n.val != 2
	})
	require.Equal(t, []int{1, 2}, visited)
}
