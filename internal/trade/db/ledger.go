package db

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	e "github.com/gartstein/linktrade/internal/trade/errors"
	"github.com/gartstein/linktrade/internal/trade/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplyStockAdjustments applies every adjustment or none. Adjustments for the
// same product are merged, and products are locked in ascending id order so
// two concurrent batches over the same products cannot deadlock.
//
// Each row is changed with a single conditional UPDATE; the stock guard and
// the recomputed active flag live in the same statement, so no concurrent
// writer can observe or create a negative stock.
func (r *Repository) ApplyStockAdjustments(ctx context.Context, adjustments []models.StockAdjustment) error {
	merged := mergeAdjustments(adjustments)
	if len(merged) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, adj := range merged {
			if err := applyAdjustment(tx, adj); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyAdjustment(tx *gorm.DB, adj models.StockAdjustment) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", adj.ProductID, adj.Delta).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", adj.Delta),
			"active":         gorm.Expr("(stock_quantity + ?) > 0", adj.Delta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var stock []int
	if err := tx.Model(&models.Product{}).Where("id = ?", adj.ProductID).Pluck("stock_quantity", &stock).Error; err != nil {
		return err
	}
	if len(stock) == 0 {
		return fmt.Errorf("%w: product %s", e.ErrNotFound, adj.ProductID)
	}
	return &e.InsufficientStockError{
		ProductID: adj.ProductID,
		Requested: -adj.Delta,
		Available: stock[0],
	}
}

// mergeAdjustments sums deltas per product, drops zero deltas and orders the
// result by product id.
func mergeAdjustments(adjustments []models.StockAdjustment) []models.StockAdjustment {
	totals := make(map[uuid.UUID]int, len(adjustments))
	for _, adj := range adjustments {
		totals[adj.ProductID] += adj.Delta
	}

	merged := make([]models.StockAdjustment, 0, len(totals))
	for id, delta := range totals {
		if delta != 0 {
			merged = append(merged, models.StockAdjustment{ProductID: id, Delta: delta})
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].ProductID[:], merged[j].ProductID[:]) < 0
	})
	return merged
}
