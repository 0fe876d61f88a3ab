package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
)

// feeRuleRepository handles the interactions with the fee rules table.
type feeRuleRepository struct {
	q Querier
}

func NewFeeRuleRepository(q Querier) FeeRuleRepository {
	return &feeRuleRepository{q: q}
}

// GetFeeRules fetches every rule of a store, default rule included.
func (r *feeRuleRepository) GetFeeRules(ctx context.Context, storeID int64) ([]*entity.FeeRule, error) {
	query := `SELECT id, store_id, country, flat_shipping, free_shipping_threshold, tax_rate
		FROM fee_rules WHERE store_id = ? ORDER BY country`
	rows, err := r.q.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("get fee rules of store %d: %w", storeID, err)
	}
	defer rows.Close()

	var rules []*entity.FeeRule
	for rows.Next() {
		rule := &entity.FeeRule{}
		var threshold decimal.NullDecimal
		if err := rows.Scan(&rule.ID, &rule.StoreID, &rule.Country, &rule.FlatShipping, &threshold, &rule.TaxRate); err != nil {
			return nil, fmt.Errorf("scan fee rule: %w", err)
		}
		if threshold.Valid {
			rule.FreeShippingThreshold = &threshold.Decimal
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
