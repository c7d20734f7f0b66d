package devnet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FeeRate is the share of every input amount kept by the pool
const FeeRate = 0.003

var (
	ErrUnknownPool           = errors.New("unknown pool")
	ErrInvalidAmount         = errors.New("amount must be greater than 0")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Pool is a constant-product liquidity pool between two assets
type Pool struct {
	AssetA   string  `json:"assetA"`
	AssetB   string  `json:"assetB"`
	ReserveA float64 `json:"reserveA"`
	ReserveB float64 `json:"reserveB"`
}

// Trade is the outcome of pricing an input amount against a pool
type Trade struct {
	AmountIn  float64
	AmountOut float64
	Fee       float64
}

func poolKey(a, b string) string {
	pair := []string{strings.ToUpper(a), strings.ToUpper(b)}
	sort.Strings(pair)
	return pair[0] + "/" + pair[1]
}

// reserves returns the reserves ordered as (from, to)
func (p *Pool) reserves(from string) (float64, float64) {
	if strings.EqualFold(p.AssetA, from) {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// Price quotes amountIn of from against the pool without changing it
func (p *Pool) Price(from string, amountIn float64) (Trade, error) {
	if amountIn <= 0 {
		return Trade{}, ErrInvalidAmount
	}

	reserveIn, reserveOut := p.reserves(from)
	if amountIn > reserveIn {
		return Trade{}, ErrInsufficientLiquidity
	}

	fee := amountIn * FeeRate
	effectiveIn := amountIn - fee
	amountOut := reserveOut * effectiveIn / (reserveIn + effectiveIn)

	if amountOut <= 0 {
		return Trade{}, ErrInsufficientLiquidity
	}

	return Trade{AmountIn: amountIn, AmountOut: amountOut, Fee: fee}, nil
}

// apply moves a priced trade into the reserves
func (p *Pool) apply(from string, trade Trade) {
	if strings.EqualFold(p.AssetA, from) {
		p.ReserveA += trade.AmountIn
		p.ReserveB -= trade.AmountOut
		return
	}
	p.ReserveB += trade.AmountIn
	p.ReserveA -= trade.AmountOut
}

func (p *Pool) String() string {
	return fmt.Sprintf("%s/%s (%.4f/%.4f)", p.AssetA, p.AssetB, p.ReserveA, p.ReserveB)
}
