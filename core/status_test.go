package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusProgress(t *testing.T) {
	tests := []struct {
		name      string
		status    Status
		wantItem  float64
		wantTotal string
	}{
		{name: "idle", status: Status{}, wantItem: 0, wantTotal: "0/0"},
		{name: "half", status: Status{Item: "a", ItemBytes: 512, ItemSize: 1024, Items: 1, TotalItems: 4}, wantItem: 50, wantTotal: "1/4"},
		{name: "directory", status: Status{Item: "d", Items: 2, TotalItems: 2}, wantItem: 100, wantTotal: "2/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantItem, tt.status.ItemProgress(), 0.001)
			assert.Equal(t, tt.wantTotal, tt.status.TotalProgress())
		})
	}
}
