package journal

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// ComputePnl returns gross and net profit for a closed trade. Shorts profit
// when the exit is below the entry.
func ComputePnl(in models.TradeInput) (gross, net float64) {
	entry := decimal.NewFromFloat(in.EntryPrice)
	exit := decimal.NewFromFloat(in.ExitPrice)
	qty := decimal.NewFromFloat(in.Quantity)

	move := exit.Sub(entry)
	if in.Side == models.SideShort {
		move = entry.Sub(exit)
	}
	g := move.Mul(qty)
	n := g.Sub(decimal.NewFromFloat(in.Commission))
	return g.InexactFloat64(), n.InexactFloat64()
}

// RiskReward returns |target-entry| / |entry-stop| when both a stop loss and
// a target are set and the risk is non-zero.
func RiskReward(in models.TradeInput) *float64 {
	if in.StopLoss == nil || in.Target == nil || *in.StopLoss == 0 || *in.Target == 0 {
		return nil
	}
	entry := decimal.NewFromFloat(in.EntryPrice)
	risk := entry.Sub(decimal.NewFromFloat(*in.StopLoss)).Abs()
	if !risk.IsPositive() {
		return nil
	}
	reward := decimal.NewFromFloat(*in.Target).Sub(entry).Abs()
	rr := reward.DivRound(risk, 4).InexactFloat64()
	return &rr
}
