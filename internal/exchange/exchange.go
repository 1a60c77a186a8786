package exchange

import (
	"context"

	"github.com/krobus00/trading-service/internal/entity"
	"github.com/shopspring/decimal"
)

// ExecutionResult is the normalized outcome of one exchange order call.
// Status is always terminal: FILLED, PARTIALLY_FILLED or REJECTED.
type ExecutionResult struct {
	Status    entity.OrderStatus
	FillPrice *decimal.Decimal
	Error     string
}

// Client places a signed order on the exchange with per-user credentials.
// Submit must not fail out: every transport or exchange-side error is
// converted into a REJECTED result.
type Client interface {
	Submit(ctx context.Context, apiKey, apiSecret string, order entity.OrderCommandMessage) ExecutionResult
}
