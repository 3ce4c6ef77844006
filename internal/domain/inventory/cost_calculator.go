package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Con stock actual en cero o negativo el promedio se reinicia al costo de entrada.
func WeightedAverageCost(stockActual int64, costoActual decimal.Decimal, cantEntrada int64, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual < 0 {
		stockActual = 0
	}
	actual := decimal.NewFromInt(stockActual)
	entrada := decimal.NewFromInt(cantEntrada)
	// La suma va en decimal: en int64 podría desbordar cerca de MaxInt64.
	sum := actual.Add(entrada)
	if !sum.IsPositive() {
		return decimal.Zero
	}
	num := actual.Mul(costoActual).Add(entrada.Mul(costoEntrada))
	return num.Div(sum).Round(4)
}
