package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the admin-tunable auction parameters. The engine reads them at
// evaluation time; it never hard-codes them.
type Settings struct {
	AntiSnipingWindow    time.Duration
	AntiSnipingExtension time.Duration
	CommissionRate       decimal.Decimal
	DefaultDepositAmount decimal.Decimal
	UpdatedAt            time.Time
}
