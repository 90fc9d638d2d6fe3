package storefront

import "storefront/internal/domain"

// LineDiff lists the line changes that turn one snapshot into another. Apply in
// order: remove, update, add.
type LineDiff struct {
	ToAdd    []domain.CartLine
	ToRemove []string
	ToUpdate []domain.CartLine
}

func (d LineDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// DiffLines matches lines by merchandise id. A line present in both is updated
// when its id, quantity or cost differ.
func DiffLines(current, desired []domain.CartLine) LineDiff {
	var diff LineDiff

	currentByID := make(map[string]domain.CartLine, len(current))
	for _, line := range current {
		currentByID[line.Merchandise.ID] = line
	}
	desiredByID := make(map[string]struct{}, len(desired))

	for _, want := range desired {
		desiredByID[want.Merchandise.ID] = struct{}{}
		have, ok := currentByID[want.Merchandise.ID]
		if !ok {
			diff.ToAdd = append(diff.ToAdd, want)
			continue
		}
		if lineChanged(have, want) {
			diff.ToUpdate = append(diff.ToUpdate, want)
		}
	}
	for _, have := range current {
		if _, ok := desiredByID[have.Merchandise.ID]; !ok {
			diff.ToRemove = append(diff.ToRemove, have.Merchandise.ID)
		}
	}
	return diff
}

// PatchLines applies diff to current, keeping the position of surviving lines
// and appending new ones.
func PatchLines(current []domain.CartLine, diff LineDiff) []domain.CartLine {
	removed := make(map[string]struct{}, len(diff.ToRemove))
	for _, id := range diff.ToRemove {
		removed[id] = struct{}{}
	}
	updated := make(map[string]domain.CartLine, len(diff.ToUpdate))
	for _, line := range diff.ToUpdate {
		updated[line.Merchandise.ID] = line
	}

	out := make([]domain.CartLine, 0, len(current)+len(diff.ToAdd))
	for _, line := range current {
		if _, ok := removed[line.Merchandise.ID]; ok {
			continue
		}
		if replacement, ok := updated[line.Merchandise.ID]; ok {
			line = replacement
		}
		out = append(out, line)
	}
	return append(out, diff.ToAdd...)
}

// Reconcile rebuilds the snapshot from an authoritative cart: the operations
// still in flight are replayed on top of it, and the result is patched into
// current so untouched lines keep their order.
func Reconcile(current, authoritative domain.Cart, pending []PendingOp) (domain.Cart, LineDiff) {
	desired := authoritative.Clone()
	for _, op := range pending {
		desired = op.apply(desired)
	}
	diff := DiffLines(current.Lines, desired.Lines)
	out := desired
	out.Lines = PatchLines(current.Lines, diff)
	return out, diff
}

func lineChanged(a, b domain.CartLine) bool {
	return a.ID != b.ID ||
		a.Quantity != b.Quantity ||
		!a.Cost.TotalAmount.Equal(b.Cost.TotalAmount)
}
