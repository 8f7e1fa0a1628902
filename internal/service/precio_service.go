package service

import (
	"ctacte/internal/dto"

	"github.com/shopspring/decimal"
)

// PrecioService calcula el precio de venta como una cascada determinística y
// sensible al orden sobre multiplicadores porcentuales:
// costo → margen → ingresos brutos → impuestos internos → neto → IVA → final.
// Cada etapa redondea a 2 decimales antes de la siguiente; con float el
// redondeo por cliente producía corrimientos de centavos entre terminales.
type PrecioService interface {
	Calcular(req dto.CalcularPrecioRequest) *dto.CalcularPrecioResponse
}

type precioService struct{}

func NewPrecioService() PrecioService { return &precioService{} }

var cien = decimal.NewFromInt(100)

// etapa aplica un recargo porcentual y redondea el resultado a 2 decimales.
func etapa(base, pct decimal.Decimal) decimal.Decimal {
	return base.Add(base.Mul(pct).Div(cien)).Round(2)
}

func (s *precioService) Calcular(req dto.CalcularPrecioRequest) *dto.CalcularPrecioResponse {
	costo := req.PrecioCosto.Round(2)
	conMargen := etapa(costo, req.MargenPct)
	conIIBB := etapa(conMargen, req.IIBBPct)
	conInternos := etapa(conIIBB, req.InternosPct)
	neto := conInternos
	final := etapa(neto, req.IVAPct)

	return &dto.CalcularPrecioResponse{
		PrecioCosto: costo,
		ConMargen:   conMargen,
		ConIIBB:     conIIBB,
		ConInternos: conInternos,
		Neto:        neto,
		IVA:         final.Sub(neto),
		PrecioFinal: final,
	}
}
