package entity

import (
	"fmt"
	"sort"
	"time"
)

// StockBalance representa el stock actual de un producto repartido por bodega.
// Total debe ser siempre igual a la suma de PerWarehouse (invariante central del ledger).
// Version es el token de concurrencia optimista: 0 significa que aún no existe en el almacenamiento.
type StockBalance struct {
	ProductID    string           `json:"product_id" bson:"_id"`
	Unit         string           `json:"unit" bson:"unit"`
	PerWarehouse map[string]int64 `json:"per_warehouse" bson:"per_warehouse"`
	Total        int64            `json:"total" bson:"total"`
	Version      int64            `json:"version" bson:"version"`
	UpdatedAt    time.Time        `json:"updated_at" bson:"updated_at"`
}

// NewStockBalance crea un saldo vacío (creación perezosa en la primera referencia).
func NewStockBalance(productID string) *StockBalance {
	return &StockBalance{ProductID: productID, PerWarehouse: map[string]int64{}}
}

// Quantity devuelve la cantidad en una bodega (0 si no tiene entrada).
func (s *StockBalance) Quantity(warehouseID string) int64 {
	if s == nil || s.PerWarehouse == nil {
		return 0
	}
	return s.PerWarehouse[warehouseID]
}

// Clone copia profunda; el motor nunca modifica el snapshot leído.
func (s *StockBalance) Clone() *StockBalance {
	c := *s
	c.PerWarehouse = make(map[string]int64, len(s.PerWarehouse))
	for k, v := range s.PerWarehouse {
		c.PerWarehouse[k] = v
	}
	return &c
}

// Apply suma delta a la bodega indicada y recalcula Total.
func (s *StockBalance) Apply(warehouseID string, delta int64) {
	if s.PerWarehouse == nil {
		s.PerWarehouse = map[string]int64{}
	}
	s.PerWarehouse[warehouseID] += delta
	s.Total = s.Sum()
}

// Sum suma las cantidades por bodega.
func (s *StockBalance) Sum() int64 {
	var total int64
	for _, q := range s.PerWarehouse {
		total += q
	}
	return total
}

// Warehouses devuelve los IDs de bodega ordenados.
func (s *StockBalance) Warehouses() []string {
	ids := make([]string, 0, len(s.PerWarehouse))
	for id := range s.PerWarehouse {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CheckInvariant verifica cantidades no negativas, Total no negativo y Total == suma por bodega.
func (s *StockBalance) CheckInvariant() error {
	for _, id := range s.Warehouses() {
		if s.PerWarehouse[id] < 0 {
			return fmt.Errorf("cantidad negativa en bodega %s: %d", id, s.PerWarehouse[id])
		}
	}
	// Sum desborda igual que Total, así que un total negativo no se detecta por la comparación.
	if s.Total < 0 {
		return fmt.Errorf("total negativo %d", s.Total)
	}
	if sum := s.Sum(); sum != s.Total {
		return fmt.Errorf("total %d no coincide con la suma por bodega %d", s.Total, sum)
	}
	return nil
}
