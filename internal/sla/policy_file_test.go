package sla_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/sla"
)

const customPolicy = `
priorities:
  P1: {response: 10m, resolve: 2h}
  P2: {response: 30m, resolve: 6h}
  P3: {response: 2h, resolve: 48h}
  P4: {response: 8h, resolve: 120h}
`

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customPolicy), 0o600))

	policy, err := sla.LoadPolicyFile(path)
	require.NoError(t, err)

	budget, err := policy.Budget(domain.TicketPriorityP2)
	require.NoError(t, err)
	assert.Equal(t, sla.Budget{Response: 30 * time.Minute, Resolve: 6 * time.Hour}, budget)
}

func TestLoadPolicyFileEmptyPathUsesDefaults(t *testing.T) {
	policy, err := sla.LoadPolicyFile("")
	require.NoError(t, err)

	budget, err := policy.Budget(domain.TicketPriorityP1)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, budget.Response)
}

func TestParsePolicyErrors(t *testing.T) {
	cases := map[string]string{
		"bad duration": "priorities:\n  P1: {response: soon, resolve: 4h}\n",
		"missing tier": "priorities:\n  P1: {response: 15m, resolve: 4h}\n",
		"not yaml":     "priorities: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sla.ParsePolicy([]byte(raw))
			require.ErrorIs(t, err, sla.ErrInvalidBudget)
		})
	}
}
