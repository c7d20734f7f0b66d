package plan

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"mina-swap/pkg/types"
)

var (
	probeFraction = decimal.RequireFromString("0.1")
	minProbe      = decimal.RequireFromString("0.01")
	atTolerance   = decimal.RequireFromString("0.005")
)

// Quoter fetches AMM quotes
type Quoter interface {
	FetchQuote(ctx context.Context, req *types.QuoteRequest) (*types.QuoteResponse, error)
}

// Pricer handles price fetching for trading plans
type Pricer struct {
	quoter Quoter
	group  singleflight.Group
}

// NewPricer creates a new pricer instance
func NewPricer(quoter Quoter) *Pricer {
	return &Pricer{
		quoter: quoter,
	}
}

// PriceInfo contains price information for an asset pair
type PriceInfo struct {
	Price     decimal.Decimal // units of ToAsset for one FromAsset
	Probe     decimal.Decimal // amount quoted to discover the price
	FromAsset string
	ToAsset   string
}

// ProbeAmount is 10% of the per-trade amount, never less than 0.01
func ProbeAmount(plan *TradingPlan) decimal.Decimal {
	return decimal.Max(plan.AmountPerTrade.Mul(probeFraction), minProbe)
}

// GetPrice quotes a small probe amount and derives the pair's price.
// Concurrent lookups for the same pair and amount share one request.
func (p *Pricer) GetPrice(ctx context.Context, plan *TradingPlan) (*PriceInfo, error) {
	probe := ProbeAmount(plan)
	key := plan.FromAsset + "/" + plan.ToAsset + "/" + probe.String()

	v, err, _ := p.group.Do(key, func() (interface{}, error) {
		amount, _ := probe.Float64()
		quote, err := p.quoter.FetchQuote(ctx, &types.QuoteRequest{
			FromAsset: plan.FromAsset,
			ToAsset:   plan.ToAsset,
			Amount:    amount,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get quote: %w", err)
		}
		if quote.AmountIn == 0 {
			return nil, fmt.Errorf("invalid amount in: 0")
		}

		return &PriceInfo{
			Price:     decimal.NewFromFloat(quote.AmountOut).Div(decimal.NewFromFloat(quote.AmountIn)),
			Probe:     probe,
			FromAsset: plan.FromAsset,
			ToAsset:   plan.ToAsset,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*PriceInfo), nil
}

// CheckTriggerCondition checks if the current price meets the plan's trigger condition
func CheckTriggerCondition(plan *TradingPlan, price decimal.Decimal) (bool, error) {
	switch plan.PriceCondition {
	case PriceAbove:
		return price.GreaterThanOrEqual(plan.TriggerPrice), nil
	case PriceBelow:
		return price.LessThanOrEqual(plan.TriggerPrice), nil
	case PriceAt:
		tolerance := plan.TriggerPrice.Mul(atTolerance)
		return price.Sub(plan.TriggerPrice).Abs().LessThanOrEqual(tolerance), nil
	default:
		return false, fmt.Errorf("unknown price condition: %s", plan.PriceCondition)
	}
}

// ShouldExecute determines if a plan should execute a trade based on current price
func (p *Pricer) ShouldExecute(ctx context.Context, plan *TradingPlan) (bool, *PriceInfo, error) {
	if !plan.CanExecute() {
		return false, nil, nil
	}

	current, err := p.GetPrice(ctx, plan)
	if err != nil {
		return false, nil, err
	}

	triggered, err := CheckTriggerCondition(plan, current.Price)
	if err != nil {
		return false, nil, err
	}

	return triggered, current, nil
}
