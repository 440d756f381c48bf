package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSplitPinsRounding(t *testing.T) {
	tests := []struct {
		amount int64
		fee    int64
	}{
		{1000, 120},
		{250, 30},
		{490, 59},
		{1, 0},
		{4, 0},
		{5, 1}, // 0.6 rounds up
		{99_999_999, 12_000_000},
	}
	for _, tt := range tests {
		split := ComputeSplit(tt.amount, PlatformFeeRate)
		assert.Equal(t, tt.fee, split.FeeCents, "amount %d", tt.amount)
		assert.Equal(t, tt.amount-tt.fee, split.SellerNetCents, "amount %d", tt.amount)
	}
}

func TestComputeSplitHalfRoundsAwayFromZero(t *testing.T) {
	// 50% of 3 is 1.5
	assert.Equal(t, int64(2), ComputeSplit(3, 5000).FeeCents)
	// 12% of 125 is exactly 15, 12% of 1221 is 146.52
	assert.Equal(t, int64(15), ComputeSplit(125, PlatformFeeRate).FeeCents)
	assert.Equal(t, int64(147), ComputeSplit(1221, PlatformFeeRate).FeeCents)
}

func TestComputeSplitFeeNeverExceedsAmount(t *testing.T) {
	for amount := int64(1); amount <= 5000; amount++ {
		split := ComputeSplit(amount, PlatformFeeRate)
		if split.FeeCents < 0 || split.FeeCents > amount {
			t.Fatalf("amount %d: fee %d out of range", amount, split.FeeCents)
		}
	}
	assert.Equal(t, int64(7), ComputeSplit(7, 20_000).FeeCents)
	assert.Equal(t, int64(0), ComputeSplit(7, -5).FeeCents)
	assert.Equal(t, Split{}, ComputeSplit(0, PlatformFeeRate))
	assert.Equal(t, Split{}, ComputeSplit(-100, PlatformFeeRate))
}

func TestEstimateNet(t *testing.T) {
	// 490: platform 59, processor 17+50
	est := EstimateNet(490)
	assert.Equal(t, int64(59), est.PlatformFee)
	assert.Equal(t, int64(67), est.ProcessorFee)
	assert.Equal(t, int64(364), est.Net)

	assert.Equal(t, int64(0), EstimateNet(40).Net)
	assert.Equal(t, Estimate{}, EstimateNet(0))
}
