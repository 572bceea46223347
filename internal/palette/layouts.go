package palette

import (
	"fmt"

	"github.com/plasmazones/plasmazones/internal/unified"
)

// LayoutItems turns the unified layout list into menu rows. current is the
// id of the entry shown on the focused screen.
func LayoutItems(entries []unified.Entry, current string) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		item := Item{ID: e.ID, Active: e.ID == current, Meta: e.Description}
		if e.IsAutotile {
			item.Label = fmt.Sprintf("%s  [autotile]", e.Name)
			item.Icon = "view-grid-symbolic"
		} else {
			item.Label = fmt.Sprintf("%s  [%d zones]", e.Name, e.ZoneCount)
			item.Icon = "view-split-left-right"
		}
		items = append(items, item)
	}
	return items
}
