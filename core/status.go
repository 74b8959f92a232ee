package core

import "fmt"

// Status is a snapshot of a transfer for display.
type Status struct {
	State State

	Item      string
	ItemBytes int64
	ItemSize  int64

	Items      int
	TotalItems int

	// Bytes per second, sampled and exponentially averaged.
	Speed    float64
	AvgSpeed float64
}

// ItemProgress is the percentage of the current item transferred. Empty files
// and directories count as complete once announced.
func (s Status) ItemProgress() float64 {
	if s.Item == "" {
		return 0
	}
	if s.ItemSize == 0 {
		return 100
	}
	return float64(s.ItemBytes) / float64(s.ItemSize) * 100
}

// TotalProgress renders as "items/total".
func (s Status) TotalProgress() string {
	return fmt.Sprintf("%d/%d", s.Items, s.TotalItems)
}
