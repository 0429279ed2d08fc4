package types

import "testing"

type handle struct {
	order *[]int
	id    int
	last  bool
}

func (h *handle) Release() bool {
	*h.order = append(*h.order, h.id)
	return h.last
}

func TestReleaseAllReverseOrder(t *testing.T) {
	var order []int
	freed := ReleaseAll(
		&handle{order: &order, id: 1, last: true},
		nil,
		&handle{order: &order, id: 2},
		&handle{order: &order, id: 3, last: true},
	)
	if freed != 2 {
		t.Fatalf("expected 2 freed, got %d", freed)
	}
	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Fatalf("unexpected release order %v", order)
	}
}
