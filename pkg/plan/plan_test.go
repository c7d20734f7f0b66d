package plan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func newTestManager(t *testing.T, now time.Time) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "plans.json"))
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func sampleParams(name string) CreateParams {
	return CreateParams{
		Name:           name,
		FromAsset:      "MINA",
		ToAsset:        "cUSD",
		WalletAddress:  "B62qtest",
		TotalAmount:    dec("3"),
		AmountPerTrade: dec("1"),
		AmountPerDay:   dec("2"),
		TriggerPrice:   dec("1"),
		PriceCondition: PriceBelow,
	}
}

func TestParsePriceCondition(t *testing.T) {
	tests := []struct {
		input     string
		condition PriceCondition
		price     string
		wantErr   bool
	}{
		{input: "above 0.95", condition: PriceAbove, price: "0.95"},
		{input: "> 2", condition: PriceAbove, price: "2"},
		{input: "BELOW 1.2", condition: PriceBelow, price: "1.2"},
		{input: "< 1.2", condition: PriceBelow, price: "1.2"},
		{input: "at 3", condition: PriceAt, price: "3"},
		{input: "== 3", condition: PriceAt, price: "3"},
		{input: "above", wantErr: true},
		{input: "above 1 extra", wantErr: true},
		{input: "near 1", wantErr: true},
		{input: "above abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			condition, price, err := ParsePriceCondition(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.condition, condition)
			assertDecimal(t, tt.price, price)
		})
	}
}

func TestTradingPlanValidate(t *testing.T) {
	valid := func() *TradingPlan {
		p := sampleParams("dca")
		return &TradingPlan{
			Name:           p.Name,
			FromAsset:      p.FromAsset,
			ToAsset:        p.ToAsset,
			WalletAddress:  p.WalletAddress,
			TotalAmount:    p.TotalAmount,
			AmountPerTrade: p.AmountPerTrade,
			AmountPerDay:   p.AmountPerDay,
			TriggerPrice:   p.TriggerPrice,
			PriceCondition: p.PriceCondition,
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*TradingPlan){
		"missing name":       func(p *TradingPlan) { p.Name = "" },
		"same assets":        func(p *TradingPlan) { p.ToAsset = p.FromAsset },
		"zero total":         func(p *TradingPlan) { p.TotalAmount = decimal.Zero },
		"negative per trade": func(p *TradingPlan) { p.AmountPerTrade = dec("-1") },
		"zero trigger":       func(p *TradingPlan) { p.TriggerPrice = decimal.Zero },
		"bad condition":      func(p *TradingPlan) { p.PriceCondition = "near" },
		"missing wallet":     func(p *TradingPlan) { p.WalletAddress = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestNextTradeAmount(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &TradingPlan{
		Status:            StatusActive,
		AmountPerTrade:    dec("1"),
		AmountPerDay:      dec("2"),
		RemainingAmount:   dec("5"),
		LastExecutionDate: now.Format(dateLayout),
		TodayExecuted:     dec("1.5"),
	}

	assertDecimal(t, "0.5", p.RemainingDailyAmount(now))
	assertDecimal(t, "0.5", p.NextTradeAmount(now))
	assert.True(t, p.CanExecuteToday(now))

	tomorrow := now.AddDate(0, 0, 1)
	assertDecimal(t, "2", p.RemainingDailyAmount(tomorrow))
	assertDecimal(t, "1", p.NextTradeAmount(tomorrow))

	p.TodayExecuted = dec("2")
	assert.False(t, p.CanExecuteToday(now))

	p.RemainingAmount = dec("0.25")
	assertDecimal(t, "0.25", p.NextTradeAmount(tomorrow))
}

func TestStoragePersistsCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "plans.json")

	s, err := NewStorage(path)
	require.NoError(t, err)
	assert.Empty(t, s.List())

	plan := &TradingPlan{Name: "b", Status: StatusPaused, TotalAmount: dec("10")}
	require.NoError(t, s.Create(plan))
	require.NoError(t, s.Create(&TradingPlan{Name: "a", Status: StatusActive}))
	assert.Error(t, s.Create(plan))

	plan.Status = StatusActive
	got, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)

	got.ExecutionHistory = append(got.ExecutionHistory, Execution{ID: "x"})
	again, err := s.Get("b")
	require.NoError(t, err)
	assert.Empty(t, again.ExecutionHistory)

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	names := []string{}
	for _, p := range reopened.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Len(t, reopened.ListByStatus(StatusActive), 1)

	loaded, err := reopened.Get("b")
	require.NoError(t, err)
	assertDecimal(t, "10", loaded.TotalAmount)

	require.NoError(t, reopened.Delete("a"))
	assert.Error(t, reopened.Delete("a"))
	assert.Error(t, reopened.Modify("missing", func(*TradingPlan) error { return nil }))

	require.NoError(t, s.Reload())
	assert.False(t, s.Exists("a"))
}

func TestStorageKeepsOtherWritersChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")

	first, err := NewStorage(path)
	require.NoError(t, err)
	second, err := NewStorage(path)
	require.NoError(t, err)

	require.NoError(t, first.Create(&TradingPlan{Name: "a", Status: StatusPaused}))
	require.NoError(t, second.Create(&TradingPlan{Name: "b", Status: StatusPaused}))
	require.NoError(t, first.Modify("a", func(p *TradingPlan) error {
		p.Status = StatusActive
		return nil
	}))

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	require.Len(t, reopened.List(), 2)
	got, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestStorageFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	s, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(&TradingPlan{Name: "a", Status: StatusPaused}))

	// a directory where the temp file goes makes every save fail
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	err = s.Modify("a", func(p *TradingPlan) error {
		p.Status = StatusActive
		return nil
	})
	require.Error(t, err)
	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)

	assert.Error(t, s.Create(&TradingPlan{Name: "b"}))
	assert.False(t, s.Exists("b"))

	assert.Error(t, s.Delete("a"))
	assert.True(t, s.Exists("a"))
}
