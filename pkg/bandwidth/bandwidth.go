package bandwidth

import (
	"math"

	"github.com/malbeclabs/pathscope/internal/stats"
	"github.com/malbeclabs/pathscope/pkg/latency"
)

// DefaultMSSBytes is the Ethernet MTU of 1500 minus IPv4 and TCP headers.
const DefaultMSSBytes = 1460

const (
	ModelTCPMathis = "tcp_mathis"

	LimitingFactorLatency    = "latency"
	LimitingFactorPacketLoss = "packet_loss"

	ReasonNoPingData = "no_ping_data"
	ReasonInvalidRTT = "invalid_rtt"
)

type Report struct {
	Available         bool     `json:"available"`
	EstimatedMbps     *float64 `json:"estimated_mbps,omitempty"`
	RTTMS             *float64 `json:"rtt_ms,omitempty"`
	PacketLossPercent *float64 `json:"packet_loss_percent,omitempty"`
	LimitingFactor    string   `json:"limiting_factor,omitempty"`
	Model             string   `json:"model,omitempty"`
	Reason            string   `json:"reason,omitempty"`
}

// Estimate bounds single-flow TCP throughput from a latency report using the
// Mathis et al. approximation: throughput = MSS / (RTT * sqrt(loss)). With no
// loss the bound degenerates to one segment per round trip.
func Estimate(r *latency.Report, mssBytes int) *Report {
	if mssBytes <= 0 {
		mssBytes = DefaultMSSBytes
	}

	rttMS, ok := r.MedianRTT()
	if !ok {
		return &Report{Available: false, Reason: ReasonNoPingData}
	}

	rttSec := rttMS / 1000
	if rttSec <= 0 {
		return &Report{Available: false, Reason: ReasonInvalidRTT}
	}

	lossPercent := r.PacketLossPercent
	loss := lossPercent / 100

	var throughputBPS float64
	var limitingFactor string
	if loss == 0 {
		throughputBPS = float64(mssBytes*8) / rttSec
		limitingFactor = LimitingFactorLatency
	} else {
		throughputBPS = float64(mssBytes*8) / (rttSec * math.Sqrt(loss))
		limitingFactor = LimitingFactorPacketLoss
	}

	mbps := stats.Round(throughputBPS/1_000_000, 2)
	return &Report{
		Available:         true,
		EstimatedMbps:     &mbps,
		RTTMS:             &rttMS,
		PacketLossPercent: &lossPercent,
		LimitingFactor:    limitingFactor,
		Model:             ModelTCPMathis,
	}
}
