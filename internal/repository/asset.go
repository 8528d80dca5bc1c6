package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/attribute"
	"github.com/attaboy/lifestats/internal/domain"
	"github.com/attaboy/lifestats/internal/infra"
	"github.com/attaboy/lifestats/internal/source"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// AssetRepo is a pgx-backed source.AssetStore over asset_records. Balances
// are stored as numeric(15,0) minor units.
type AssetRepo struct {
	*source.Broadcaster
	db DBTX
}

// NewAssetRepository returns an asset store notifying through b.
func NewAssetRepository(db DBTX, b *source.Broadcaster) *AssetRepo {
	if b == nil {
		b = source.NewBroadcaster()
	}
	return &AssetRepo{Broadcaster: b, db: db}
}

// Assets lists every asset.
func (r *AssetRepo) Assets(ctx context.Context) ([]domain.AssetRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, balance_minor, updated_at
		FROM asset_records ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return scanAll(rows, scanAsset)
}

// NetWorth sums every balance, saturating at the int64 range.
func (r *AssetRepo) NetWorth(ctx context.Context) (int64, error) {
	assets, err := r.Assets(ctx)
	if err != nil {
		return 0, err
	}
	return attribute.NetWorth(assets), nil
}

func (r *AssetRepo) AddAsset(ctx context.Context, a domain.AssetRecord) (domain.AssetRecord, error) {
	bal, err := infra.BalanceToNumeric(a.BalanceMinor)
	if err != nil {
		return domain.AssetRecord{}, domain.ErrValidation(err.Error())
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO asset_records (id, name, balance_minor, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, balance_minor, updated_at`,
		a.ID, a.Name, bal, time.Now().UTC())
	out, err := scanAsset(row)
	if err != nil {
		return domain.AssetRecord{}, err
	}
	r.Notify()
	return out, nil
}

func (r *AssetRepo) SetAssetBalance(ctx context.Context, id uuid.UUID, balanceMinor int64) error {
	bal, err := infra.BalanceToNumeric(balanceMinor)
	if err != nil {
		return domain.ErrValidation(err.Error())
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE asset_records SET balance_minor = $2, updated_at = now()
		WHERE id = $1`, id, bal)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("asset", id.String())
	}
	r.Notify()
	return nil
}

func (r *AssetRepo) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM asset_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("asset", id.String())
	}
	r.Notify()
	return nil
}

func scanAsset(row pgx.Row) (domain.AssetRecord, error) {
	var a domain.AssetRecord
	var bal pgtype.Numeric
	if err := row.Scan(&a.ID, &a.Name, &bal, &a.UpdatedAt); err != nil {
		return domain.AssetRecord{}, fmt.Errorf("scan asset: %w", err)
	}
	v, err := infra.BalanceFromNumeric(bal)
	if err != nil {
		return domain.AssetRecord{}, fmt.Errorf("convert balance_minor: %w", err)
	}
	a.BalanceMinor = v
	return a, nil
}
