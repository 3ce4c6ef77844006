package ledger

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/retail-ledger/internal/domain/entity"
)

// Los montos se muestran con separadores de miles indonesios (Rp50.000).
var printer = message.NewPrinter(language.Indonesian)

// FormatQuantity formatea una cantidad entera con separador de miles.
func FormatQuantity(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatAmount formatea un saldo según el recurso: Rupiah para monedero, puntos en otro caso.
func FormatAmount(resource entity.ResourceKind, n int64) string {
	if resource == entity.ResourceWallet {
		return printer.Sprintf("Rp%d", n)
	}
	return printer.Sprintf("%d puntos", n)
}
