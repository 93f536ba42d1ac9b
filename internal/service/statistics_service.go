package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"ledgerpos/internal/dto"
	"ledgerpos/internal/infra"
	"ledgerpos/internal/model"
	"ledgerpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const topProductsLimit = 10

// StatsCache is the read-through cache in front of statistics.
// *infra.StatsCache satisfies it.
type StatsCache interface {
	Generation(ctx context.Context, tenantID string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type StatisticsService interface {
	// GetStatistics aggregates active invoices dated from the start of day
	// from through the end of day to, both in UTC.
	GetStatistics(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*dto.StatisticsResponse, error)
}

type statisticsService struct {
	invoices repository.InvoiceRepository
	cache    StatsCache
	ttl      time.Duration
}

// NewStatisticsService builds the aggregator. cache may be nil.
func NewStatisticsService(invoices repository.InvoiceRepository, cache StatsCache, ttl time.Duration) StatisticsService {
	return &statisticsService{invoices: invoices, cache: cache, ttl: ttl}
}

func (s *statisticsService) GetStatistics(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*dto.StatisticsResponse, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil, invalid("to", "must not be before from")
	}
	fromStr, toStr := from.Format(dateLayout), to.Format(dateLayout)

	// The generation is read before computing: an invalidation landing while
	// we compute moves readers to a new key and this value is never served.
	cache := s.cache
	var key string
	if cache != nil {
		gen, err := cache.Generation(ctx, tenantID.String())
		if err != nil {
			log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("statistics cache unavailable, computing directly")
			cache = nil
		} else {
			key = infra.StatsKey(tenantID.String(), gen, fromStr, toStr)
		}
	}

	if cache != nil {
		raw, hit, err := cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("statistics cache read failed, computing directly")
		} else if hit {
			var cached dto.StatisticsResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	invoices, err := s.invoices.ListActiveInRange(ctx, tenantID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, classifyStoreError("load invoices for statistics", err)
	}
	resp := AggregateStatistics(invoices)
	resp.From, resp.To = fromStr, toStr

	if cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(resp); err == nil {
			if err := cache.Set(ctx, key, raw, s.ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("statistics cache write failed")
			}
		}
	}
	return resp, nil
}

// AggregateStatistics sums sales and cost over the given invoices and ranks
// products by quantity sold. Lines without a product are grouped by name.
// Cancelled invoices are ignored.
func AggregateStatistics(invoices []model.Invoice) *dto.StatisticsResponse {
	type bucket struct {
		productID *uuid.UUID
		name      string
		quantity  int
		total     decimal.Decimal
	}

	resp := &dto.StatisticsResponse{
		TotalSales:  decimal.Zero,
		TotalCost:   decimal.Zero,
		Profit:      decimal.Zero,
		TopProducts: []dto.TopProduct{},
	}
	buckets := make(map[string]*bucket)
	for _, inv := range invoices {
		if inv.Status != model.StatusActive {
			continue
		}
		resp.InvoiceCount++
		for _, it := range inv.Items {
			qty := decimal.NewFromInt(int64(it.Quantity))
			sales := it.SalePrice.Mul(qty)
			resp.TotalSales = resp.TotalSales.Add(sales)
			resp.TotalCost = resp.TotalCost.Add(it.PurchasePrice.Mul(qty))

			key := "name:" + it.ProductName
			if it.ProductID != nil {
				key = "id:" + it.ProductID.String()
			}
			b, ok := buckets[key]
			if !ok {
				b = &bucket{productID: it.ProductID, name: it.ProductName, total: decimal.Zero}
				buckets[key] = b
			}
			b.quantity += it.Quantity
			b.total = b.total.Add(sales)
		}
	}
	resp.Profit = resp.TotalSales.Sub(resp.TotalCost)

	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].quantity != ranked[j].quantity {
			return ranked[i].quantity > ranked[j].quantity
		}
		if c := ranked[i].total.Cmp(ranked[j].total); c != 0 {
			return c > 0
		}
		return ranked[i].name < ranked[j].name
	})
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	for _, b := range ranked {
		resp.TopProducts = append(resp.TopProducts, dto.TopProduct{
			ProductID:   optionalID(b.productID),
			ProductName: b.name,
			Quantity:    b.quantity,
			Total:       b.total,
		})
	}
	return resp
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
