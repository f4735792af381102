package models

import (
	"fmt"
	"strings"
)

// TimeSlot is one entry of the fixed daily teaching grid. Index is the
// 1-based position within a day; the same grid applies to every teaching
// day.
type TimeSlot struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// SlotGrid is the weekly placement universe: Days teaching days (1..Days)
// crossed with the daily slot list.
type SlotGrid struct {
	Days  int
	Slots []TimeSlot
}

// ParseSlotGrid builds a grid from "HH:MM-HH:MM" entries as they appear in
// configuration.
func ParseSlotGrid(days int, slotTimes []string) (SlotGrid, error) {
	if days < 1 || days > 7 {
		return SlotGrid{}, fmt.Errorf("days per week must be within 1..7, got %d", days)
	}
	if len(slotTimes) == 0 {
		return SlotGrid{}, fmt.Errorf("slot grid is empty")
	}
	slots := make([]TimeSlot, 0, len(slotTimes))
	for i, raw := range slotTimes {
		parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return SlotGrid{}, fmt.Errorf("malformed slot time %q, want HH:MM-HH:MM", raw)
		}
		slots = append(slots, TimeSlot{
			Index:     i + 1,
			StartTime: strings.TrimSpace(parts[0]),
			EndTime:   strings.TrimSpace(parts[1]),
		})
	}
	return SlotGrid{Days: days, Slots: slots}, nil
}

// SlotByIndex returns the grid entry for a 1-based index.
func (g SlotGrid) SlotByIndex(index int) (TimeSlot, bool) {
	if index < 1 || index > len(g.Slots) {
		return TimeSlot{}, false
	}
	return g.Slots[index-1], true
}

// CellCount is the number of (day, slot) cells in the weekly grid.
func (g SlotGrid) CellCount() int {
	return g.Days * len(g.Slots)
}
