package model

import "strings"

// WouldCreateCycle reports whether moving folder id under newParent would
// create a loop in the tree described by folders. A nil or zero parent is
// the root and never cycles.
func WouldCreateCycle(folders []Folder, id int64, newParent *int64) bool {
	if newParent == nil || *newParent == 0 {
		return false
	}
	parents := make(map[int64]*int64, len(folders))
	for _, f := range folders {
		parents[f.ID] = f.ParentID
	}

	seen := make(map[int64]bool)
	cur := *newParent
	for {
		if cur == id {
			return true
		}
		if seen[cur] {
			// The existing tree already loops; refuse to extend it.
			return true
		}
		seen[cur] = true
		p, ok := parents[cur]
		if !ok || p == nil {
			return false
		}
		cur = *p
	}
}

// FolderPath returns the slash-joined folder names from the root down to id.
// Unknown ids yield "".
func FolderPath(folders []Folder, id int64) string {
	byID := make(map[int64]Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	var parts []string
	seen := make(map[int64]bool)
	cur, ok := byID[id]
	for ok && !seen[cur.ID] {
		seen[cur.ID] = true
		parts = append([]string{cur.Name}, parts...)
		if cur.ParentID == nil {
			break
		}
		cur, ok = byID[*cur.ParentID]
	}
	return strings.Join(parts, "/")
}
