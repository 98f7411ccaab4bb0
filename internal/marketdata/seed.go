package marketdata

import (
	"context"
	"errors"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/logger"
	"quant-desk/internal/types"
)

var errNoHistory = errors.New("no seed history for any instrument")

// SeedAll loads history for every instrument into the store. Instruments
// whose source fails are left empty and logged; the tick feed fills them.
// If gen is non-nil its prices are re-anchored to the last seeded close.
func SeedAll(ctx context.Context, store *Store, src interfaces.HistorySource, universe []types.Instrument, points int, gen *Generator) {
	op := logger.StartOperation(ctx, "marketdata.SeedAll", "symbols", len(universe), "points", points)
	ctx = op.Context()

	seeded := 0
	for _, inst := range universe {
		hist, err := src.History(ctx, inst, points)
		if err != nil || len(hist) == 0 {
			logger.Warn(ctx, "No seed history", "symbol", inst.Symbol, "error", err)
			continue
		}
		store.Seed(inst.Symbol, hist)
		if gen != nil {
			gen.SetPrice(inst.Symbol, hist[len(hist)-1].Price)
		}
		seeded++
		logger.Info(ctx, "Seeded history", "symbol", inst.Symbol, "points", len(hist))
	}
	if seeded == 0 && len(universe) > 0 {
		op.EndWithError(errNoHistory)
		return
	}
	op.End("seeded", seeded)
}
