package progress

// Inventory tracks which message identifiers are known to carry an
// attachment, independent of whether the attachment bytes have been fetched.
// First-discovery order is kept for reproducible progress files; it carries
// no other meaning.
type Inventory struct {
	ids  []int64
	seen map[int64]struct{}
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{seen: make(map[int64]struct{})}
}

// RecordIfNew adds an identifier unless it is already tracked.
func (inv *Inventory) RecordIfNew(id int64) {
	if _, ok := inv.seen[id]; ok {
		return
	}
	inv.seen[id] = struct{}{}
	inv.ids = append(inv.ids, id)
}

// Replace resets the inventory to exactly the given identifiers,
// deduplicating while preserving their order.
func (inv *Inventory) Replace(ids []int64) {
	inv.ids = inv.ids[:0]
	inv.seen = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		inv.RecordIfNew(id)
	}
}

// Remaining returns the tracked identifiers that are not in the
// already-on-disk set.
func (inv *Inventory) Remaining(onDisk map[int64]struct{}) []int64 {
	var remaining []int64
	for _, id := range inv.ids {
		if _, ok := onDisk[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// IDs returns a copy of the tracked identifiers in discovery order.
func (inv *Inventory) IDs() []int64 {
	out := make([]int64, len(inv.ids))
	copy(out, inv.ids)
	return out
}

// Len returns the number of tracked identifiers.
func (inv *Inventory) Len() int {
	return len(inv.ids)
}
