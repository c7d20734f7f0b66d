package plan

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Manager provides high-level operations for trading plans
type Manager struct {
	storage *Storage
	now     func() time.Time

	// serialises read-modify-write cycles on plans
	mu sync.Mutex
}

// CreateParams describes a new plan
type CreateParams struct {
	Name           string
	Description    string
	FromAsset      string
	ToAsset        string
	WalletAddress  string
	TotalAmount    decimal.Decimal
	AmountPerTrade decimal.Decimal
	AmountPerDay   decimal.Decimal
	TriggerPrice   decimal.Decimal
	PriceCondition PriceCondition
}

// NewManager creates a new plan manager backed by the file at storagePath
func NewManager(storagePath string) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	return &Manager{
		storage: storage,
		now:     time.Now,
	}, nil
}

// CreatePlan validates and stores a new plan in the paused state
func (m *Manager) CreatePlan(params CreateParams) (*TradingPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storage.Exists(params.Name) {
		return nil, fmt.Errorf("plan '%s' already exists", params.Name)
	}

	if params.AmountPerTrade.GreaterThan(params.AmountPerDay) {
		return nil, fmt.Errorf("amount per trade cannot be greater than amount per day")
	}
	if params.AmountPerDay.GreaterThan(params.TotalAmount) {
		return nil, fmt.Errorf("amount per day cannot be greater than total amount")
	}

	now := m.now()

	plan := &TradingPlan{
		Name:             params.Name,
		Description:      params.Description,
		Created:          now,
		LastUpdated:      now,
		FromAsset:        params.FromAsset,
		ToAsset:          params.ToAsset,
		WalletAddress:    params.WalletAddress,
		TotalAmount:      params.TotalAmount,
		AmountPerTrade:   params.AmountPerTrade,
		AmountPerDay:     params.AmountPerDay,
		TriggerPrice:     params.TriggerPrice,
		PriceCondition:   params.PriceCondition,
		Status:           StatusPaused,
		TotalExecuted:    decimal.Zero,
		RemainingAmount:  params.TotalAmount,
		ExecutionHistory: []Execution{},
		TodayExecuted:    decimal.Zero,
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	if err := m.storage.Create(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// GetPlan retrieves the latest saved version of a plan
func (m *Manager) GetPlan(name string) (*TradingPlan, error) {
	if err := m.storage.Reload(); err != nil {
		return nil, err
	}
	return m.storage.Get(name)
}

// ListPlans returns all plans
func (m *Manager) ListPlans() []*TradingPlan {
	return m.storage.List()
}

// ListPlansByStatus returns plans filtered by status
func (m *Manager) ListPlansByStatus(status PlanStatus) []*TradingPlan {
	return m.storage.ListByStatus(status)
}

// GetActivePlans returns all active plans
func (m *Manager) GetActivePlans() []*TradingPlan {
	return m.storage.ListByStatus(StatusActive)
}

// Reload picks up changes other processes wrote to the plan file
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage.Reload()
}

// StoragePath returns where plans are persisted
func (m *Manager) StoragePath() string {
	return m.storage.FilePath()
}

// DeletePlan removes a plan that is not active
func (m *Manager) DeletePlan(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	plan, err := m.GetPlan(name)
	if err != nil {
		return err
	}

	if plan.IsActive() {
		return fmt.Errorf("cannot delete active plan '%s', stop it first", name)
	}

	return m.storage.Delete(name)
}

// StartPlan activates a plan for execution
func (m *Manager) StartPlan(name string) error {
	return m.transition(name, func(plan *TradingPlan) error {
		switch plan.Status {
		case StatusActive:
			return fmt.Errorf("plan '%s' is already active", name)
		case StatusCompleted:
			return fmt.Errorf("plan '%s' has already completed all trades", name)
		case StatusCancelled:
			return fmt.Errorf("plan '%s' has been cancelled", name)
		}
		plan.Status = StatusActive
		return nil
	})
}

// StopPlan pauses a running plan
func (m *Manager) StopPlan(name string) error {
	return m.transition(name, func(plan *TradingPlan) error {
		if plan.Status != StatusActive {
			return fmt.Errorf("plan '%s' is not active", name)
		}
		plan.Status = StatusPaused
		return nil
	})
}

// CancelPlan marks a plan as cancelled
func (m *Manager) CancelPlan(name string) error {
	return m.transition(name, func(plan *TradingPlan) error {
		if plan.Status == StatusCompleted {
			return fmt.Errorf("plan '%s' has already completed all trades", name)
		}
		plan.Status = StatusCancelled
		return nil
	})
}

func (m *Manager) transition(name string, apply func(*TradingPlan) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.storage.Modify(name, func(plan *TradingPlan) error {
		if err := apply(plan); err != nil {
			return err
		}
		plan.LastUpdated = m.now()
		return nil
	})
}

// RecordExecution appends an execution to a plan and returns its ID.
// Submitted executions count against the daily and total amounts;
// the plan completes once nothing remains. The plan is re-read first,
// so status changes saved by other processes are kept.
func (m *Manager) RecordExecution(name string, execution Execution) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	execution.ID = uuid.New().String()
	execution.Timestamp = now

	err := m.storage.Modify(name, func(plan *TradingPlan) error {
		plan.ExecutionHistory = append(plan.ExecutionHistory, execution)
		plan.ExecutionCount++

		today := now.Format(dateLayout)
		if plan.LastExecutionDate != today {
			plan.LastExecutionDate = today
			plan.TodayExecuted = decimal.Zero
		}

		if execution.Status == ExecutionSubmitted {
			plan.TotalExecuted = plan.TotalExecuted.Add(execution.Amount)
			plan.TodayExecuted = plan.TodayExecuted.Add(execution.Amount)
			plan.RemainingAmount = plan.RemainingAmount.Sub(execution.Amount)

			if !plan.RemainingAmount.IsPositive() {
				plan.RemainingAmount = decimal.Zero
				plan.Status = StatusCompleted
			}
		}

		plan.LastUpdated = now
		return nil
	})
	if err != nil {
		return "", err
	}
	return execution.ID, nil
}

// Stats aggregates a plan's execution history
type Stats struct {
	TotalExecutions     int             `json:"total_executions"`
	SubmittedExecutions int             `json:"submitted_executions"`
	FailedExecutions    int             `json:"failed_executions"`
	TotalSold           decimal.Decimal `json:"total_sold"`
	TotalEstimated      decimal.Decimal `json:"total_estimated"`
	TotalFees           decimal.Decimal `json:"total_fees"`
	AveragePrice        decimal.Decimal `json:"average_price"`
}

// ComputeStats sums the submitted executions of a plan
func ComputeStats(history []Execution) Stats {
	stats := Stats{TotalExecutions: len(history)}

	for _, exec := range history {
		if exec.Status != ExecutionSubmitted {
			stats.FailedExecutions++
			continue
		}
		stats.SubmittedExecutions++
		stats.TotalSold = stats.TotalSold.Add(exec.Amount)
		stats.TotalEstimated = stats.TotalEstimated.Add(exec.EstimatedOutput)
		stats.TotalFees = stats.TotalFees.Add(exec.Fee)
	}

	if stats.TotalSold.IsPositive() {
		stats.AveragePrice = stats.TotalEstimated.Div(stats.TotalSold)
	}
	return stats
}
