package events

import (
	"math/big"
	"strconv"

	"lendbridge/core/types"
)

const (
	// TypeOraclePriceUpdated is emitted when the owner records a new asset price.
	TypeOraclePriceUpdated = "oracle.price_updated"
)

type OraclePriceUpdated struct {
	Asset     string
	Price     *big.Int
	Timestamp int64
}

func (OraclePriceUpdated) EventType() string { return TypeOraclePriceUpdated }

func (e OraclePriceUpdated) Event() *types.Event {
	price := big.NewInt(0)
	if e.Price != nil {
		price = new(big.Int).Set(e.Price)
	}
	return &types.Event{
		Type: TypeOraclePriceUpdated,
		Attributes: map[string]string{
			"asset":     normalizeAsset(e.Asset),
			"price":     price.String(),
			"timestamp": strconv.FormatInt(e.Timestamp, 10),
		},
	}
}
