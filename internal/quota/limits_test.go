package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTier(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want Limits
	}{
		{"free", TierFree, Limits{MaxBoards: 10, MaxCards: 500, MaxStorageBytes: 250 * 1024 * 1024}},
		{"standard", TierStandard, Limits{MaxBoards: 100, MaxCards: 10_000, MaxStorageBytes: 5 * 1024 * 1024 * 1024}},
		{"pro", TierPro, Limits{MaxBoards: Unlimited, MaxCards: Unlimited, MaxStorageBytes: 50 * 1024 * 1024 * 1024}},
		{"unknown falls back to free", Tier("enterprise"), Limits{MaxBoards: 10, MaxCards: 500, MaxStorageBytes: 250 * 1024 * 1024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForTier(tt.tier))
		})
	}
}

func TestLimitsFor(t *testing.T) {
	l := ForTier(TierFree)
	assert.Equal(t, int64(10), l.For(ResourceBoards))
	assert.Equal(t, int64(500), l.For(ResourceCards))
	assert.Equal(t, int64(250*1024*1024), l.For(ResourceStorage))
	assert.Equal(t, int64(0), l.For(Resource("widgets")))
}

func TestIsUnlimited(t *testing.T) {
	assert.True(t, IsUnlimited(Unlimited))
	assert.False(t, IsUnlimited(0))
	assert.False(t, IsUnlimited(100))
}

func TestValidTier(t *testing.T) {
	assert.True(t, ValidTier(TierFree))
	assert.True(t, ValidTier(TierPro))
	assert.False(t, ValidTier(Tier("enterprise")))
}
