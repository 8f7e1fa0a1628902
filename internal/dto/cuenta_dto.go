package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// VentaCuentaRequest es el débito que el POS registra al cerrar una venta en
// cuenta corriente. Si el guard lo rechaza, la venta debe abortarse o cobrarse
// por otro medio — nunca se degrada silenciosamente.
type VentaCuentaRequest struct {
	ClienteID  string          `json:"cliente_id" validate:"required,uuid"`
	Monto      decimal.Decimal `json:"monto"      validate:"required,gt=0"`
	Referencia *string         `json:"referencia"` // número de ticket o comprobante
	Notas      *string         `json:"notas"`
}

type RegistrarPagoRequest struct {
	Monto decimal.Decimal `json:"monto" validate:"required,gt=0"`
	// Fecha informada del pago (YYYY-MM-DD); informativa, el orden del ledger
	// usa el timestamp del servidor.
	Fecha      *string `json:"fecha"      validate:"omitempty,datetime=2006-01-02"`
	Referencia *string `json:"referencia"`
	Notas      *string `json:"notas"`
}

type RegistrarAjusteRequest struct {
	Direccion   string          `json:"direccion"   validate:"required,oneof=debito credito"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
	Notas       *string         `json:"notas"`
}

type AnularMovimientoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

type MovimientoFilter struct {
	Tipo     string `form:"tipo"`
	Concepto string `form:"concepto"`
	Desde    string `form:"desde"` // YYYY-MM-DD inclusive
	Hasta    string `form:"hasta"` // YYYY-MM-DD inclusive
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type CuentaFilter struct {
	Busqueda string `form:"busqueda"`
	ConSaldo bool   `form:"con_saldo"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoResponse struct {
	ID              string          `json:"id"`
	Numero          int64           `json:"numero"`
	Tipo            string          `json:"tipo"`
	Concepto        string          `json:"concepto"`
	Monto           decimal.Decimal `json:"monto"`
	SaldoAnterior   decimal.Decimal `json:"saldo_anterior"`
	SaldoPosterior  decimal.Decimal `json:"saldo_posterior"`
	Referencia      *string         `json:"referencia"`
	Notas           *string         `json:"notas"`
	FechaPago       *string         `json:"fecha_pago,omitempty"`
	CreadoPor       string          `json:"creado_por"`
	Anulado         bool            `json:"anulado"`
	MotivoAnulacion *string         `json:"motivo_anulacion"`
	ReferenciaID    *string         `json:"referencia_id"`
	CreatedAt       string          `json:"created_at"`
}

type MovimientoListResponse struct {
	Data       []MovimientoResponse `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

// LimiteResponse reporta el límite como variante explícita: cuando Ilimitado
// es true, Monto es null — nunca 0 ni un valor centinela.
type LimiteResponse struct {
	Ilimitado bool             `json:"ilimitado"`
	Monto     *decimal.Decimal `json:"monto"`
}

type UltimoMovimientoResponse struct {
	Concepto string          `json:"concepto"`
	Monto    decimal.Decimal `json:"monto"`
	Fecha    string          `json:"fecha"`
}

type CuentaResponse struct {
	ClienteID         string          `json:"cliente_id"`
	Cliente           string          `json:"cliente"`
	CreditoHabilitado bool            `json:"credito_habilitado"`
	Limite            LimiteResponse  `json:"limite"`
	Saldo             decimal.Decimal `json:"saldo"`
	// Disponible es null cuando el límite es ilimitado.
	Disponible       *decimal.Decimal          `json:"disponible"`
	UltimoMovimiento *UltimoMovimientoResponse `json:"ultimo_movimiento"`
}

type CuentaListResponse struct {
	Data       []CuentaResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type AnulacionResponse struct {
	Original MovimientoResponse `json:"original"`
	Inverso  MovimientoResponse `json:"inverso"`
	Saldo    decimal.Decimal    `json:"saldo"`
}
