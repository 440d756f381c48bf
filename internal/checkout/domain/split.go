package domain

// PlatformFeeRate is the platform's cut in basis points (12%).
const PlatformFeeRate int64 = 1200

const bpsDenominator int64 = 10_000

// Processor pricing used for the seller earnings preview only. The real
// processor fee is deducted by the processor and never recorded here.
const (
	estimatedProcessorBps   int64 = 340
	estimatedProcessorFixed int64 = 50
)

type Split struct {
	FeeCents       int64 `json:"fee_cents"`
	SellerNetCents int64 `json:"seller_net_cents"`
}

// ComputeSplit rounds the fee half away from zero: 250 at 12% is 30,
// 490 is 59. The fee never exceeds the amount.
func ComputeSplit(amount, rateBps int64) Split {
	if amount <= 0 {
		return Split{}
	}
	if rateBps < 0 {
		rateBps = 0
	}
	if rateBps > bpsDenominator {
		rateBps = bpsDenominator
	}
	fee := roundBps(amount, rateBps)
	return Split{FeeCents: fee, SellerNetCents: amount - fee}
}

type Estimate struct {
	PlatformFee  int64 `json:"platform_fee_cents"`
	ProcessorFee int64 `json:"processor_fee_cents"`
	Net          int64 `json:"net_cents"`
}

// EstimateNet previews what a seller keeps from one sale, floored at zero.
func EstimateNet(amount int64) Estimate {
	if amount <= 0 {
		return Estimate{}
	}
	platformFee := ComputeSplit(amount, PlatformFeeRate).FeeCents
	processorFee := roundBps(amount, estimatedProcessorBps) + estimatedProcessorFixed
	net := amount - platformFee - processorFee
	if net < 0 {
		net = 0
	}
	return Estimate{PlatformFee: platformFee, ProcessorFee: processorFee, Net: net}
}

// roundBps assumes non-negative inputs; amounts are capped well below the
// overflow point of amount*bps.
func roundBps(amount, bps int64) int64 {
	return (amount*bps + bpsDenominator/2) / bpsDenominator
}
