package domain

import (
	"sort"
)

// Allocation is the quantity taken from one stock record
type Allocation struct {
	StockID     string
	WarehouseID string
	Quantity    int
}

// Allocate splits quantity greedily across stocks in the order given.
// stocks must already be sorted by warehouse priority. When the stocks cannot
// cover quantity the result is partial; callers check availability first.
func Allocate(stocks []*StockRecord, quantity int) []Allocation {
	var result []Allocation
	remaining := quantity

	for _, stock := range stocks {
		if remaining <= 0 {
			break
		}
		take := min(remaining, stock.Available())
		if take <= 0 {
			continue
		}
		result = append(result, Allocation{
			StockID:     stock.ID,
			WarehouseID: stock.WarehouseID,
			Quantity:    take,
		})
		remaining -= take
	}

	return result
}

// TotalAvailable sums the reservable quantity of stocks
func TotalAvailable(stocks []*StockRecord) int {
	total := 0
	for _, s := range stocks {
		if a := s.Available(); a > 0 {
			total += a
		}
	}
	return total
}

// Allocated sums the quantity of an allocation
func Allocated(allocations []Allocation) int {
	total := 0
	for _, a := range allocations {
		total += a.Quantity
	}
	return total
}

// SortByWarehousePriority orders stocks by ascending warehouse priority, then
// warehouse id, so equal priorities still give a stable order.
func SortByWarehousePriority(stocks []*StockRecord, warehouses []*Warehouse) {
	priority := make(map[string]int, len(warehouses))
	for _, w := range warehouses {
		priority[w.ID] = w.Priority
	}

	sort.SliceStable(stocks, func(i, j int) bool {
		pi, pj := priority[stocks[i].WarehouseID], priority[stocks[j].WarehouseID]
		if pi != pj {
			return pi < pj
		}
		return stocks[i].WarehouseID < stocks[j].WarehouseID
	})
}

// GroupByType splits stocks by component type, keeping their order
func GroupByType(stocks []*StockRecord) map[string][]*StockRecord {
	groups := make(map[string][]*StockRecord)
	for _, s := range stocks {
		groups[s.TypeComponentID] = append(groups[s.TypeComponentID], s)
	}
	return groups
}
