package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mina-swap/pkg/logger"
	"mina-swap/pkg/types"
)

const (
	DefaultCheckInterval = 30 * time.Second // Check prices every 30 seconds
	MinCheckInterval     = time.Second      // Floor to avoid hammering the AMM

	maxConcurrentPlans = 4
)

// AMM is the part of the AMM client the executor needs
type AMM interface {
	Quoter
	SubmitSwap(ctx context.Context, req *types.SwapRequest) (*types.SwapResponse, error)
}

// Executor evaluates active plans and executes trades when their
// trigger conditions are met
type Executor struct {
	manager       *Manager
	pricer        *Pricer
	amm           AMM
	logger        *logger.Logger
	checkInterval time.Duration
}

// TickResult summarises what one evaluation pass did
type TickResult struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
}

// NewExecutor creates a new executor instance
func NewExecutor(manager *Manager, amm AMM, log *logger.Logger, interval time.Duration) *Executor {
	if log == nil {
		log = logger.Discard()
	}
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if interval < MinCheckInterval {
		interval = MinCheckInterval
	}

	return &Executor{
		manager:       manager,
		pricer:        NewPricer(amm),
		amm:           amm,
		logger:        log,
		checkInterval: interval,
	}
}

// CheckInterval returns the interval between evaluation passes
func (e *Executor) CheckInterval() time.Duration {
	return e.checkInterval
}

// Run evaluates active plans every check interval until ctx is done
func (e *Executor) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.checkInterval)
	defer ticker.Stop()

	e.logger.WithField("interval", e.checkInterval).Info("executor started")

	for {
		if _, err := e.RunOnce(ctx); err != nil && ctx.Err() == nil {
			e.logger.WithError(err).Error("evaluation pass failed")
		}

		select {
		case <-ctx.Done():
			e.logger.Info("executor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce reloads plans from disk and evaluates every active plan once
func (e *Executor) RunOnce(ctx context.Context) (*TickResult, error) {
	if err := e.manager.Reload(); err != nil {
		return nil, fmt.Errorf("failed to reload plans: %w", err)
	}

	plans := e.manager.GetActivePlans()
	outcomes := make([]outcome, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPlans)
	for i, p := range plans {
		g.Go(func() error {
			o, err := e.checkAndExecutePlan(gctx, p)
			outcomes[i] = o
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &TickResult{Checked: len(plans)}
	for _, o := range outcomes {
		if o.triggered {
			result.Triggered++
		}
		switch o.status {
		case ExecutionSubmitted:
			result.Submitted++
		case ExecutionFailed:
			result.Failed++
		}
	}
	return result, nil
}

type outcome struct {
	triggered bool
	status    ExecutionStatus
}

// checkAndExecutePlan only returns an error for local failures such as
// storage writes; AMM failures are logged or recorded on the plan
func (e *Executor) checkAndExecutePlan(ctx context.Context, plan *TradingPlan) (outcome, error) {
	log := e.logger.WithField("plan", plan.Name)

	if !plan.CanExecuteToday(e.manager.now()) {
		log.Debug("daily limit reached")
		return outcome{}, nil
	}

	shouldExecute, priceInfo, err := e.pricer.ShouldExecute(ctx, plan)
	if err != nil {
		log.WithError(err).Warn("price check failed")
		return outcome{}, nil
	}
	if !shouldExecute {
		if priceInfo != nil {
			log.WithField("price", priceInfo.Price.String()).Debug("trigger not met")
		}
		return outcome{}, nil
	}

	log.WithFields(logrus.Fields{
		"price":     priceInfo.Price.String(),
		"condition": plan.PriceCondition,
		"trigger":   plan.TriggerPrice.String(),
	}).Info("trigger condition met")

	status, err := e.executeTrade(ctx, plan, priceInfo)
	if err != nil {
		return outcome{triggered: true}, err
	}
	return outcome{triggered: true, status: status}, nil
}

// executeTrade quotes the trade amount, submits the swap and records the attempt
func (e *Executor) executeTrade(ctx context.Context, plan *TradingPlan, priceInfo *PriceInfo) (ExecutionStatus, error) {
	amount := plan.NextTradeAmount(e.manager.now())
	log := e.logger.WithFields(logrus.Fields{
		"plan":   plan.Name,
		"amount": amount.String(),
		"from":   plan.FromAsset,
		"to":     plan.ToAsset,
	})

	execution := Execution{
		Amount:      amount,
		QuotedPrice: priceInfo.Price,
		Status:      ExecutionFailed,
	}

	amountFloat, _ := amount.Float64()
	quoteReq := types.QuoteRequest{
		FromAsset: plan.FromAsset,
		ToAsset:   plan.ToAsset,
		Amount:    amountFloat,
	}

	quote, err := e.amm.FetchQuote(ctx, &quoteReq)
	if err != nil {
		return e.recordFailure(ctx, plan.Name, execution, fmt.Errorf("failed to get quote: %w", err))
	}
	execution.QuotedPrice = decimal.NewFromFloat(quote.Price())
	execution.EstimatedOutput = decimal.NewFromFloat(quote.AmountOut)
	execution.Fee = decimal.NewFromFloat(quote.Fee)

	// the plan may have been stopped from another terminal since the pass began
	current, err := e.manager.GetPlan(plan.Name)
	if err != nil || !current.CanExecute() {
		log.Info("plan no longer active, skipping swap")
		return "", nil
	}

	swap, err := e.amm.SubmitSwap(ctx, &types.SwapRequest{
		QuoteRequest:  quoteReq,
		WalletAddress: plan.WalletAddress,
	})
	if err != nil {
		return e.recordFailure(ctx, plan.Name, execution, fmt.Errorf("failed to submit swap: %w", err))
	}

	execution.Status = ExecutionSubmitted
	execution.TransactionID = swap.TransactionID
	execution.SwapStatus = swap.Status
	execution.SubmittedAt = swap.SubmittedAt
	execution.Message = swap.Message

	id, err := e.manager.RecordExecution(plan.Name, execution)
	if err != nil {
		return "", fmt.Errorf("failed to record execution for plan '%s': %w", plan.Name, err)
	}

	log.WithFields(logrus.Fields{
		"execution":      id,
		"transaction_id": swap.TransactionID,
		"status":         swap.Status,
	}).Info("swap submitted")

	if updated, err := e.manager.GetPlan(plan.Name); err == nil && updated.IsCompleted() {
		log.Info("plan has completed all trades")
	}
	return ExecutionSubmitted, nil
}

func (e *Executor) recordFailure(ctx context.Context, name string, execution Execution, cause error) (ExecutionStatus, error) {
	// a cancelled run is not a failed trade
	if errors.Is(cause, context.Canceled) && ctx.Err() != nil {
		return "", nil
	}

	execution.ErrorMessage = cause.Error()
	if _, err := e.manager.RecordExecution(name, execution); err != nil {
		return "", fmt.Errorf("failed to record execution for plan '%s': %w", name, err)
	}

	e.logger.WithField("plan", name).WithError(cause).Warn("trade failed")
	return ExecutionFailed, nil
}
