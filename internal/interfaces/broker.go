package interfaces

import (
	"context"

	"quant-desk/internal/types"
)

// Venue executes orders. A returned error means nothing was filled.
type Venue interface {
	Execute(ctx context.Context, req types.OrderReq) (types.Fill, error)
}
