package jobs

import (
	"context"
	"log"
	"time"

	"github.com/anjiri1684/class_portal/models"
)

type BalanceAuditor interface {
	NegativeBalances(ctx context.Context) ([]models.CreditBalance, error)
}

// IntegritySweep refolds every balance in the ledger. Negative balances are
// reported by the ledger itself; the sweep makes sure they are found even
// when nobody reads them.
type IntegritySweep struct {
	Ledger  BalanceAuditor
	Timeout time.Duration
}

func NewIntegritySweep(ledger BalanceAuditor) *IntegritySweep {
	return &IntegritySweep{Ledger: ledger, Timeout: 5 * time.Minute}
}

func (s *IntegritySweep) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	s.Sweep(ctx)
}

func (s *IntegritySweep) Sweep(ctx context.Context) []models.CreditBalance {
	log.Println("Running job: CreditIntegritySweep...")

	negative, err := s.Ledger.NegativeBalances(ctx)
	if err != nil {
		log.Printf("Error sweeping credit balances: %v", err)
		return nil
	}
	if len(negative) == 0 {
		log.Println("No negative credit balances found.")
		return nil
	}
	log.Printf("[INTEGRITY] %d negative credit balance(s) found.", len(negative))
	return negative
}
