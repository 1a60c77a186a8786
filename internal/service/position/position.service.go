package position

import (
	"context"
	"errors"
	"sort"

	"github.com/krobus00/trading-service/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrListEventsFailed = errors.New("failed to list fill events")

// zeroPositionEpsilon drops numerically-zero positions from the output.
var zeroPositionEpsilon = decimal.NewFromFloat(0.0001)

type EventStore interface {
	ListFilledByUser(ctx context.Context, userID string) ([]entity.OrderEvent, error)
}

// PositionService derives current holdings from the order event history.
// Positions are recomputed on demand and never persisted.
type PositionService struct {
	eventStore EventStore
}

func NewPositionService(eventStore EventStore) *PositionService {
	return &PositionService{eventStore: eventStore}
}

// ComputePositions folds the user's fill events per symbol. The fold is
// commutative and associative, so the result does not depend on event
// arrival order. BUY adds quantity and cost, SELL subtracts both; the
// average price is accumulated cost over absolute quantity.
func (s *PositionService) ComputePositions(ctx context.Context, userID string) ([]entity.Position, error) {
	events, err := s.eventStore.ListFilledByUser(ctx, userID)
	if err != nil {
		logrus.Error(err)
		return nil, ErrListEventsFailed
	}

	type accumulator struct {
		quantity decimal.Decimal
		cost     decimal.Decimal
	}

	bySymbol := make(map[string]*accumulator)
	for _, event := range events {
		if event.Price == nil {
			continue
		}

		acc, ok := bySymbol[event.Symbol]
		if !ok {
			acc = &accumulator{}
			bySymbol[event.Symbol] = acc
		}

		quantity := event.Quantity
		cost := event.Price.Mul(event.Quantity)
		if event.Side == entity.OrderSideSell {
			quantity = quantity.Neg()
			cost = cost.Neg()
		}

		acc.quantity = acc.quantity.Add(quantity)
		acc.cost = acc.cost.Add(cost)
	}

	positions := make([]entity.Position, 0, len(bySymbol))
	for symbol, acc := range bySymbol {
		absQuantity := acc.quantity.Abs()
		if !absQuantity.GreaterThan(zeroPositionEpsilon) {
			continue
		}

		positions = append(positions, entity.Position{
			Symbol:       symbol,
			Quantity:     acc.quantity,
			AveragePrice: acc.cost.Div(absQuantity),
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return positions, nil
}
