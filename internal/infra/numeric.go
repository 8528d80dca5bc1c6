package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// MaxBalanceMinor is the largest magnitude a numeric(15,0) balance column holds.
const MaxBalanceMinor = 999_999_999_999_999

// BalanceFromNumeric converts an asset balance read from a numeric(15,0)
// column into minor units. NULL, NaN, infinities and fractional minor units
// are rejected.
func BalanceFromNumeric(n pgtype.Numeric) (int64, error) {
	if !n.Valid {
		return 0, fmt.Errorf("balance is NULL")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return 0, fmt.Errorf("balance is not a finite number")
	}
	v, err := n.Int64Value()
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return v.Int64, nil
}

// BalanceToNumeric converts a balance in minor units for writing to a
// numeric(15,0) column.
func BalanceToNumeric(minor int64) (pgtype.Numeric, error) {
	if minor > MaxBalanceMinor || minor < -MaxBalanceMinor {
		return pgtype.Numeric{}, fmt.Errorf("balance %d exceeds numeric(15,0)", minor)
	}
	return pgtype.Numeric{
		Int:              big.NewInt(minor),
		Exp:              0,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}, nil
}
