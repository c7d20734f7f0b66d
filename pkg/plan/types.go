package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceCondition defines when a trade should be triggered
type PriceCondition string

const (
	PriceAbove PriceCondition = "above" // Trigger when price goes above target
	PriceBelow PriceCondition = "below" // Trigger when price goes below target
	PriceAt    PriceCondition = "at"    // Trigger when price equals target (with tolerance)
)

// PlanStatus defines the current state of a trading plan
type PlanStatus string

const (
	StatusActive    PlanStatus = "active"
	StatusPaused    PlanStatus = "paused"
	StatusCompleted PlanStatus = "completed"
	StatusCancelled PlanStatus = "cancelled"
)

// ExecutionStatus defines the outcome of a single execution
type ExecutionStatus string

const (
	ExecutionSubmitted ExecutionStatus = "submitted" // AMM accepted the swap
	ExecutionFailed    ExecutionStatus = "failed"    // quote or swap call failed
)

const dateLayout = "2006-01-02"

// TradingPlan is an automated strategy that swaps FromAsset into ToAsset
// in slices whenever the quoted price meets the trigger
type TradingPlan struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`

	FromAsset      string          `json:"from_asset"`
	ToAsset        string          `json:"to_asset"`
	WalletAddress  string          `json:"wallet_address"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPerTrade decimal.Decimal `json:"amount_per_trade"`
	AmountPerDay   decimal.Decimal `json:"amount_per_day"`
	TriggerPrice   decimal.Decimal `json:"trigger_price"` // units of ToAsset per FromAsset
	PriceCondition PriceCondition  `json:"price_condition"`

	Status           PlanStatus      `json:"status"`
	TotalExecuted    decimal.Decimal `json:"total_executed"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	ExecutionHistory []Execution     `json:"execution_history"`
	ExecutionCount   int             `json:"execution_count"`

	LastExecutionDate string          `json:"last_execution_date"` // YYYY-MM-DD
	TodayExecuted     decimal.Decimal `json:"today_executed"`
}

// Execution is a single quote+swap attempt made for a plan
type Execution struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	Amount          decimal.Decimal `json:"amount"`
	QuotedPrice     decimal.Decimal `json:"quoted_price"`
	EstimatedOutput decimal.Decimal `json:"estimated_output"`
	Fee             decimal.Decimal `json:"fee"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	SwapStatus      string          `json:"swap_status,omitempty"` // as reported by the AMM
	SubmittedAt     string          `json:"submitted_at,omitempty"`
	Message         string          `json:"message,omitempty"`
	Status          ExecutionStatus `json:"status"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// Validate checks if the trading plan has valid parameters
func (tp *TradingPlan) Validate() error {
	if tp.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	if tp.FromAsset == "" {
		return fmt.Errorf("source asset is required")
	}
	if tp.ToAsset == "" {
		return fmt.Errorf("destination asset is required")
	}
	if tp.FromAsset == tp.ToAsset {
		return fmt.Errorf("source and destination asset must differ")
	}
	if !tp.TotalAmount.IsPositive() {
		return fmt.Errorf("total amount must be greater than 0")
	}
	if !tp.AmountPerTrade.IsPositive() {
		return fmt.Errorf("amount per trade must be greater than 0")
	}
	if !tp.AmountPerDay.IsPositive() {
		return fmt.Errorf("amount per day must be greater than 0")
	}
	if !tp.TriggerPrice.IsPositive() {
		return fmt.Errorf("trigger price must be greater than 0")
	}
	if tp.PriceCondition != PriceAbove && tp.PriceCondition != PriceBelow && tp.PriceCondition != PriceAt {
		return fmt.Errorf("price condition must be 'above', 'below', or 'at'")
	}
	if tp.WalletAddress == "" {
		return fmt.Errorf("wallet address is required")
	}
	return nil
}

// IsActive returns true if the plan is currently active
func (tp *TradingPlan) IsActive() bool {
	return tp.Status == StatusActive
}

// IsCompleted returns true if the plan has completed all trades
func (tp *TradingPlan) IsCompleted() bool {
	return tp.Status == StatusCompleted
}

// CanExecute returns true if the plan can execute more trades
func (tp *TradingPlan) CanExecute() bool {
	return tp.Status == StatusActive && tp.RemainingAmount.IsPositive()
}

// RemainingDailyAmount returns how much can still be executed on now's date
func (tp *TradingPlan) RemainingDailyAmount(now time.Time) decimal.Decimal {
	if tp.LastExecutionDate != now.Format(dateLayout) {
		return tp.AmountPerDay
	}

	remaining := tp.AmountPerDay.Sub(tp.TodayExecuted)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CanExecuteToday returns true if the plan can execute more trades on now's date
func (tp *TradingPlan) CanExecuteToday(now time.Time) bool {
	return tp.CanExecute() && tp.RemainingDailyAmount(now).IsPositive()
}

// NextTradeAmount is the smallest of the per-trade amount, what is left
// for the day and what is left overall
func (tp *TradingPlan) NextTradeAmount(now time.Time) decimal.Decimal {
	return decimal.Min(tp.AmountPerTrade, tp.RemainingDailyAmount(now), tp.RemainingAmount)
}

// clone returns a copy that shares no slices with tp
func (tp *TradingPlan) clone() *TradingPlan {
	cp := *tp
	cp.ExecutionHistory = append([]Execution(nil), tp.ExecutionHistory...)
	return &cp
}

// PlanSummary provides a simplified view of a plan for listing
type PlanSummary struct {
	Name            string          `json:"name"`
	FromAsset       string          `json:"from_asset"`
	ToAsset         string          `json:"to_asset"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	TriggerPrice    decimal.Decimal `json:"trigger_price"`
	PriceCondition  PriceCondition  `json:"price_condition"`
	Status          PlanStatus      `json:"status"`
	ExecutionCount  int             `json:"execution_count"`
	Created         time.Time       `json:"created"`
}

// ToSummary converts a TradingPlan to a PlanSummary
func (tp *TradingPlan) ToSummary() *PlanSummary {
	return &PlanSummary{
		Name:            tp.Name,
		FromAsset:       tp.FromAsset,
		ToAsset:         tp.ToAsset,
		TotalAmount:     tp.TotalAmount,
		RemainingAmount: tp.RemainingAmount,
		TriggerPrice:    tp.TriggerPrice,
		PriceCondition:  tp.PriceCondition,
		Status:          tp.Status,
		ExecutionCount:  tp.ExecutionCount,
		Created:         tp.Created,
	}
}

// ParsePriceCondition parses "<condition> <price>", e.g. "above 0.95" or "< 1.2"
func ParsePriceCondition(input string) (PriceCondition, decimal.Decimal, error) {
	parts := strings.Fields(input)
	if len(parts) != 2 {
		return "", decimal.Zero, fmt.Errorf("price condition must be in format '<condition> <price>' (e.g., 'above 0.95')")
	}
	raw, price := strings.ToLower(parts[0]), parts[1]

	var condition PriceCondition
	switch raw {
	case "above", ">":
		condition = PriceAbove
	case "below", "<":
		condition = PriceBelow
	case "at", "=", "==":
		condition = PriceAt
	default:
		return "", decimal.Zero, fmt.Errorf("invalid condition '%s', must be 'above', 'below', or 'at'", raw)
	}

	value, err := decimal.NewFromString(price)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid trigger price %q: %w", price, err)
	}

	return condition, value, nil
}
