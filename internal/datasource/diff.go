package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// MasteryDiff represents differences between two mastery snapshots
type MasteryDiff struct {
	// Added contains node IDs scored in B but not in A
	Added []string
	// Removed contains node IDs scored in A but not in B
	Removed []string
	// StatusChanged lists nodes whose mastery bucket moved
	StatusChanged []StatusChange
	CountA        int
	CountB        int
}

// StatusChange is a bucket move for a single node
type StatusChange struct {
	ID   string              `json:"id"`
	From model.MasteryStatus `json:"from"`
	To   model.MasteryStatus `json:"to"`
}

// CompareMastery reports what changed from a to b. Score changes inside the
// same bucket are ignored.
func CompareMastery(a, b model.Mastery) MasteryDiff {
	d := MasteryDiff{CountA: len(a), CountB: len(b)}
	for id := range b {
		if _, ok := a[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			d.Removed = append(d.Removed, id)
			continue
		}
		if sa, sb := a.Status(id), b.Status(id); sa != sb {
			d.StatusChanged = append(d.StatusChanged, StatusChange{ID: id, From: sa, To: sb})
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.StatusChanged, func(i, j int) bool { return d.StatusChanged[i].ID < d.StatusChanged[j].ID })
	return d
}

// HasChanges returns true if anything differs
func (d MasteryDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.StatusChanged) > 0
}

// Summary returns a human-readable summary of the differences
func (d MasteryDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("Mastery unchanged (%d scores)", d.CountB)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mastery changed (%d -> %d scores):\n", d.CountA, d.CountB)
	if len(d.Added) > 0 {
		fmt.Fprintf(&sb, "  - %d newly scored\n", len(d.Added))
	}
	if len(d.Removed) > 0 {
		fmt.Fprintf(&sb, "  - %d no longer scored\n", len(d.Removed))
	}
	if len(d.StatusChanged) > 0 {
		fmt.Fprintf(&sb, "  - %d changed status\n", len(d.StatusChanged))
		if len(d.StatusChanged) <= 5 {
			for _, c := range d.StatusChanged {
				fmt.Fprintf(&sb, "    - %s: %s -> %s\n", c.ID, c.From, c.To)
			}
		}
	}
	return sb.String()
}
