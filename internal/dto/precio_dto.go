package dto

import "github.com/shopspring/decimal"

// CalcularPrecioRequest son los parámetros de la cascada de precio de venta:
// costo → margen → ingresos brutos → impuestos internos → neto → IVA → final.
type CalcularPrecioRequest struct {
	PrecioCosto  decimal.Decimal `json:"precio_costo"  validate:"required,gt=0"`
	MargenPct    decimal.Decimal `json:"margen_pct"    validate:"min=0"`
	IIBBPct      decimal.Decimal `json:"iibb_pct"      validate:"min=0"`
	InternosPct  decimal.Decimal `json:"internos_pct"  validate:"min=0"`
	IVAPct       decimal.Decimal `json:"iva_pct"       validate:"min=0"`
}

// CalcularPrecioResponse expone cada etapa intermedia, ya redondeada a 2
// decimales, para que el front muestre el desglose sin recalcular.
type CalcularPrecioResponse struct {
	PrecioCosto decimal.Decimal `json:"precio_costo"`
	ConMargen   decimal.Decimal `json:"con_margen"`
	ConIIBB     decimal.Decimal `json:"con_iibb"`
	ConInternos decimal.Decimal `json:"con_internos"`
	Neto        decimal.Decimal `json:"neto"`
	IVA         decimal.Decimal `json:"iva"`
	PrecioFinal decimal.Decimal `json:"precio_final"`
}
