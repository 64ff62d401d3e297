package sla

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/maintenance-sla/internal/domain"
)

// policyFile is the on-disk budget table:
//
//	priorities:
//	  P1: {response: 15m, resolve: 4h}
//	  P2: {response: 1h, resolve: 8h}
type policyFile struct {
	Priorities map[string]struct {
		Response string `yaml:"response"`
		Resolve  string `yaml:"resolve"`
	} `yaml:"priorities"`
}

// LoadPolicyFile reads a YAML budget table and builds a Policy from it.
// An empty path yields the default table.
func LoadPolicyFile(path string) (*Policy, error) {
	if path == "" {
		return NewPolicy(DefaultBudgets())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy %s: %w", path, err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes a YAML budget table.
func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}

	budgets := make(map[domain.TicketPriority]Budget, len(file.Priorities))
	for name, entry := range file.Priorities {
		response, err := time.ParseDuration(entry.Response)
		if err != nil {
			return nil, fmt.Errorf("%w: %s response: %v", ErrInvalidBudget, name, err)
		}
		resolve, err := time.ParseDuration(entry.Resolve)
		if err != nil {
			return nil, fmt.Errorf("%w: %s resolve: %v", ErrInvalidBudget, name, err)
		}
		budgets[domain.TicketPriority(name)] = Budget{Response: response, Resolve: resolve}
	}
	return NewPolicy(budgets)
}
