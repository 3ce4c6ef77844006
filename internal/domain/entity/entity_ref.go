package entity

import "fmt"

// Tipos de entidad referenciable por el ledger.
const (
	EntityTypeStock   = "stock"   // producto + bodega
	EntityTypeAccount = "account" // usuario + tipo de recurso
)

// ResourceKind tipo de saldo de una cuenta de usuario.
type ResourceKind string

const (
	ResourcePoints ResourceKind = "points" // puntos de fidelización
	ResourceWallet ResourceKind = "wallet" // monedero en Rupiah (sin decimales)
)

// Valid indica si el recurso es uno de los soportados.
func (r ResourceKind) Valid() bool {
	return r == ResourcePoints || r == ResourceWallet
}

// EntityRef identifica la instancia cuyo historial se registra: (producto, bodega) o (usuario, recurso).
type EntityRef struct {
	Type        string       `json:"type" bson:"type"`
	ProductID   string       `json:"product_id,omitempty" bson:"product_id,omitempty"`
	WarehouseID string       `json:"warehouse_id,omitempty" bson:"warehouse_id,omitempty"`
	UserID      string       `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Resource    ResourceKind `json:"resource,omitempty" bson:"resource,omitempty"`
}

// StockRef construye la referencia de stock de un producto en una bodega.
func StockRef(productID, warehouseID string) EntityRef {
	return EntityRef{Type: EntityTypeStock, ProductID: productID, WarehouseID: warehouseID}
}

// AccountRef construye la referencia de la cuenta de un usuario para un recurso.
func AccountRef(userID string, resource ResourceKind) EntityRef {
	return EntityRef{Type: EntityTypeAccount, UserID: userID, Resource: resource}
}

// Key devuelve la clave canónica (stock:<producto>:<bodega> o account:<usuario>:<recurso>).
func (r EntityRef) Key() string {
	if r.Type == EntityTypeAccount {
		return fmt.Sprintf("%s:%s:%s", EntityTypeAccount, r.UserID, r.Resource)
	}
	return fmt.Sprintf("%s:%s:%s", EntityTypeStock, r.ProductID, r.WarehouseID)
}

// LockKey clave del registro de saldo que protege la referencia.
// Todas las bodegas de un producto comparten el mismo StockBalance.
func (r EntityRef) LockKey() string {
	if r.Type == EntityTypeAccount {
		return r.Key()
	}
	return fmt.Sprintf("%s:%s", EntityTypeStock, r.ProductID)
}

func (r EntityRef) String() string { return r.Key() }
