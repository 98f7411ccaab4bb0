package interfaces

import (
	"context"

	"quant-desk/internal/types"
)

type Engine interface {
	Cycle(ctx context.Context) (types.CycleResult, error)
}
