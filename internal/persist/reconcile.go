package persist

import "github.com/mesh-intelligence/folio/pkg/types"

// Plan is the set of store calls needed to bring a child collection from its
// previously persisted ids to the current items. Updates and Inserts index
// into the current items.
type Plan struct {
	Deletes []string
	Updates []int
	Inserts []int
}

// Empty reports whether the plan issues no calls.
func (p Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Updates) == 0 && len(p.Inserts) == 0
}

// Reconcile diffs the previously persisted ids against the current items.
// Ids no longer present are deleted. Items whose id was persisted before are
// updates; items without an id, or with an id the store has not seen, are
// inserts. Deletes keep the order of previous.
func Reconcile(previous []string, current []types.ChildItem) Plan {
	var plan Plan
	before := make(map[string]bool, len(previous))
	for _, id := range previous {
		before[id] = true
	}
	kept := make(map[string]bool, len(current))
	for i, item := range current {
		if item.ID != "" && before[item.ID] && !kept[item.ID] {
			kept[item.ID] = true
			plan.Updates = append(plan.Updates, i)
			continue
		}
		plan.Inserts = append(plan.Inserts, i)
	}
	seen := make(map[string]bool, len(previous))
	for _, id := range previous {
		if kept[id] || seen[id] {
			continue
		}
		seen[id] = true
		plan.Deletes = append(plan.Deletes, id)
	}
	return plan
}
