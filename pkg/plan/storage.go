package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	DefaultStorageFileName = ".mina-swap-plans.json"
)

// Storage persists trading plans in a single JSON file.
// Plans handed out are copies; changes only land through Create/Update.
type Storage struct {
	filePath string
	mu       sync.RWMutex
	plans    map[string]*TradingPlan
}

// PlanStorage represents the JSON structure for storage
type PlanStorage struct {
	Plans map[string]*TradingPlan `json:"plans"`
}

// NewStorage opens the plan file, defaulting to ~/.mina-swap-plans.json
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath: filePath,
		plans:    make(map[string]*TradingPlan),
	}

	if err := storage.Reload(); err != nil {
		return nil, err
	}

	return storage, nil
}

// Reload replaces the in-memory plans with the file contents.
// A missing file yields an empty store.
func (s *Storage) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reloadLocked()
}

// reloadLocked reads the file into s.plans; callers hold s.mu
func (s *Storage) reloadLocked() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.plans = make(map[string]*TradingPlan)
			return nil
		}
		return fmt.Errorf("failed to load plans: %w", err)
	}

	var planStorage PlanStorage
	if err := json.Unmarshal(data, &planStorage); err != nil {
		return fmt.Errorf("failed to unmarshal plans: %w", err)
	}

	s.plans = planStorage.Plans
	if s.plans == nil {
		s.plans = make(map[string]*TradingPlan)
	}
	return nil
}

// saveLocked writes plans to disk; callers hold s.mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(PlanStorage{Plans: s.plans}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plans: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// temp file + rename keeps the store intact if we crash mid-write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write plans: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Create adds a new plan to storage
func (s *Storage) Create(plan *TradingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return err
	}
	if _, exists := s.plans[plan.Name]; exists {
		return fmt.Errorf("plan '%s' already exists", plan.Name)
	}

	return s.putLocked(plan.Name, plan.clone())
}

// Get retrieves a plan by name
func (s *Storage) Get(name string) (*TradingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, exists := s.plans[name]
	if !exists {
		return nil, fmt.Errorf("plan '%s' not found", name)
	}

	return plan.clone(), nil
}

// Modify re-reads the file, applies fn to a copy of the named plan and
// writes the result. Only that plan changes, so edits other processes
// saved in the meantime survive.
func (s *Storage) Modify(name string, fn func(*TradingPlan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return err
	}

	existing, exists := s.plans[name]
	if !exists {
		return fmt.Errorf("plan '%s' not found", name)
	}

	plan := existing.clone()
	if err := fn(plan); err != nil {
		return err
	}
	plan.Name = name

	return s.putLocked(name, plan)
}

// Delete removes a plan from storage
func (s *Storage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadLocked(); err != nil {
		return err
	}
	if _, exists := s.plans[name]; !exists {
		return fmt.Errorf("plan '%s' not found", name)
	}

	return s.putLocked(name, nil)
}

// putLocked stores plan under name (nil deletes) and saves, restoring
// the previous entry if the write fails; callers hold s.mu
func (s *Storage) putLocked(name string, plan *TradingPlan) error {
	previous, existed := s.plans[name]

	if plan == nil {
		delete(s.plans, name)
	} else {
		s.plans[name] = plan
	}

	if err := s.saveLocked(); err != nil {
		if existed {
			s.plans[name] = previous
		} else {
			delete(s.plans, name)
		}
		return err
	}
	return nil
}

// List returns all plans ordered by name
func (s *Storage) List() []*TradingPlan {
	return s.filter(func(*TradingPlan) bool { return true })
}

// ListByStatus returns plans with the given status ordered by name
func (s *Storage) ListByStatus(status PlanStatus) []*TradingPlan {
	return s.filter(func(p *TradingPlan) bool { return p.Status == status })
}

func (s *Storage) filter(keep func(*TradingPlan) bool) []*TradingPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]*TradingPlan, 0, len(s.plans))
	for _, plan := range s.plans {
		if keep(plan) {
			plans = append(plans, plan.clone())
		}
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans
}

// Exists checks if a plan with the given name exists
func (s *Storage) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.plans[name]
	return exists
}

// FilePath returns the storage file path
func (s *Storage) FilePath() string {
	return s.filePath
}
