package service

import "sort"

// FileRecord describes one discovered file together with its freshly
// computed content fingerprint.
type FileRecord struct {
	Path        string
	Fingerprint string
}

// ReconciliationPlan holds the three action sets that drive incremental
// storage mutation. Only ToInsert and ToUpdate files are re-chunked and
// re-embedded; ToDelete files are purged together with their chunks.
type ReconciliationPlan struct {
	ToInsert []FileRecord
	ToUpdate []FileRecord
	ToDelete []string
}

// IsEmpty returns true if the plan requires no storage mutation.
func (p ReconciliationPlan) IsEmpty() bool {
	return len(p.ToInsert) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// ChangedPaths returns the set of paths whose chunks must be regenerated.
func (p ReconciliationPlan) ChangedPaths() map[string]bool {
	changed := make(map[string]bool, len(p.ToInsert)+len(p.ToUpdate))
	for _, f := range p.ToInsert {
		changed[f.Path] = true
	}
	for _, f := range p.ToUpdate {
		changed[f.Path] = true
	}
	return changed
}

// ReconcileFiles compares the current file listing against previously
// recorded fingerprints and classifies every file as new, changed,
// unchanged, or deleted.
//
// Files whose fingerprint matches the prior record are left untouched:
// their stored chunks and embeddings are retained as-is. Insert and update
// sets preserve discovery order; the delete set is sorted by path for
// deterministic output.
func ReconcileFiles(previous map[string]string, current []FileRecord) ReconciliationPlan {
	var plan ReconciliationPlan

	seen := make(map[string]bool, len(current))
	for _, file := range current {
		seen[file.Path] = true

		priorFingerprint, exists := previous[file.Path]
		switch {
		case !exists:
			plan.ToInsert = append(plan.ToInsert, file)
		case priorFingerprint != file.Fingerprint:
			plan.ToUpdate = append(plan.ToUpdate, file)
		}
	}

	for path := range previous {
		if !seen[path] {
			plan.ToDelete = append(plan.ToDelete, path)
		}
	}
	sort.Strings(plan.ToDelete)

	return plan
}
