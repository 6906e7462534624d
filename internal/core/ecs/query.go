package ecs

// Each2 visits entities that hold both A and B, in ascending entity order.
// It walks the smaller store and probes the larger one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	var ids []EntityID
	if sa.Len() <= sb.Len() {
		ids = sa.IDs()
	} else {
		ids = sb.IDs()
	}
	for _, id := range ids {
		a, okA := sa.data[id]
		b, okB := sb.data[id]
		if okA && okB {
			fn(id, a, b)
		}
	}
}

// Each2Without visits entities that hold A and B but not X. The movement
// systems use it to skip entities that are already mid-step.
func Each2Without[A, B, X any](sa *Store[A], sb *Store[B], sx *Store[X], fn func(EntityID, *A, *B)) {
	Each2(sa, sb, func(id EntityID, a *A, b *B) {
		if sx.Has(id) {
			return
		}
		fn(id, a, b)
	})
}
