package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// Fees are the per-order charges added on top of the subtotal.
type Fees struct {
	Shipping decimal.Decimal
	Tax      decimal.Decimal
}

// FeePolicy prices shipping and tax for one store's order. Rules are read
// through the caller's repository so a checkout sees them in its own
// transaction.
type FeePolicy interface {
	Quote(ctx context.Context, rules repository.FeeRuleRepository, store *entity.Store, subtotal decimal.Decimal, shipTo entity.Address) (Fees, error)
}

// RuleFeePolicy applies the most specific fee rule: store and destination
// country, then the store default, then the configured defaults.
type RuleFeePolicy struct {
	rdb             *redis.Client
	cacheTTL        time.Duration
	defaultShipping decimal.Decimal
	defaultTaxRate  decimal.Decimal
}

// NewRuleFeePolicy creates a policy; rdb may be nil to disable caching.
func NewRuleFeePolicy(rdb *redis.Client, cacheTTL time.Duration, defaultShipping, defaultTaxRate decimal.Decimal) *RuleFeePolicy {
	return &RuleFeePolicy{
		rdb:             rdb,
		cacheTTL:        cacheTTL,
		defaultShipping: defaultShipping,
		defaultTaxRate:  defaultTaxRate,
	}
}

func (p *RuleFeePolicy) Quote(ctx context.Context, repo repository.FeeRuleRepository, store *entity.Store, subtotal decimal.Decimal, shipTo entity.Address) (Fees, error) {
	rules, err := p.storeRules(ctx, repo, store.ID)
	if err != nil {
		return Fees{}, err
	}

	rule := pickRule(rules, shipTo.Country)
	if rule == nil {
		return Fees{
			Shipping: p.defaultShipping,
			Tax:      subtotal.Mul(p.defaultTaxRate).Round(2),
		}, nil
	}

	shipping := rule.FlatShipping
	if rule.FreeShippingThreshold != nil && subtotal.GreaterThanOrEqual(*rule.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Fees{
		Shipping: shipping,
		Tax:      subtotal.Mul(rule.TaxRate).Round(2),
	}, nil
}

func pickRule(rules []*entity.FeeRule, country string) *entity.FeeRule {
	var fallback *entity.FeeRule
	for _, rule := range rules {
		switch {
		case rule.Country != "" && strings.EqualFold(rule.Country, country):
			return rule
		case rule.Country == "":
			fallback = rule
		}
	}
	return fallback
}

func feeRulesCacheKey(storeID int64) string {
	return fmt.Sprintf("fee_rules:%d", storeID)
}

func (p *RuleFeePolicy) storeRules(ctx context.Context, repo repository.FeeRuleRepository, storeID int64) ([]*entity.FeeRule, error) {
	key := feeRulesCacheKey(storeID)
	if p.rdb != nil {
		cached, err := p.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			var rules []*entity.FeeRule
			if err := json.Unmarshal([]byte(cached), &rules); err == nil {
				return rules, nil
			}
			logger.Warn().Msgf("Discarding malformed fee rules cache for store %d", storeID)
		case !errors.Is(err, redis.Nil):
			logger.Error().Err(err).Msgf("Error getting fee rules for store %d from cache", storeID)
		}
	}

	rules, err := repo.GetFeeRules(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if p.rdb != nil {
		if payload, err := json.Marshal(rules); err == nil {
			if err := p.rdb.Set(ctx, key, payload, p.cacheTTL).Err(); err != nil {
				logger.Error().Err(err).Msgf("Error setting fee rules for store %d in cache", storeID)
			}
		}
	}
	return rules, nil
}
