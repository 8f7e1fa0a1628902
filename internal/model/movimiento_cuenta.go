package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TipoDebito  = "debito"
	TipoCredito = "credito"

	ConceptoVenta       = "venta"
	ConceptoPago        = "pago"
	ConceptoNotaDebito  = "nota_debito"
	ConceptoNotaCredito = "nota_credito"
)

// MovimientoCuenta es una entrada inmutable del ledger de cuenta corriente.
// Los movimientos NUNCA se modifican ni borran — una anulación agrega el
// movimiento inverso y marca el original como anulado, preservando el historial.
type MovimientoCuenta struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CuentaID uuid.UUID `gorm:"type:uuid;not null;index:idx_movimientos_cuenta_orden,priority:1"`
	// Numero es monotónico por cuenta. Se asigna bajo el lock de la fila de la
	// cuenta y desempata el orden cuando dos movimientos comparten created_at.
	Numero         int64           `gorm:"not null"`
	Tipo           string          `gorm:"type:varchar(10);not null"`  // "debito" | "credito"
	Concepto       string          `gorm:"type:varchar(20);not null"` // "venta" | "pago" | "nota_debito" | "nota_credito"
	Monto          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoAnterior  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoPosterior decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Referencia     *string
	Notas          *string
	// FechaPago es la fecha informada del comprobante de pago; el orden del
	// ledger usa siempre created_at asignado por el servidor.
	FechaPago       *time.Time `gorm:"type:date"`
	CreadoPor       uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt       time.Time `gorm:"index:idx_movimientos_cuenta_orden,priority:2"`
	Anulado         bool      `gorm:"not null;default:false"`
	MotivoAnulacion *string
	// ReferenciaID enlaza el movimiento inverso con el original anulado.
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
}

// TableName overrides GORM's default pluralization (movimiento_cuenta → movimientos_cuenta).
func (MovimientoCuenta) TableName() string { return "movimientos_cuenta" }

// Delta devuelve el monto con signo: positivo para débitos, negativo para créditos.
func (m *MovimientoCuenta) Delta() decimal.Decimal {
	if m.Tipo == TipoDebito {
		return m.Monto
	}
	return m.Monto.Neg()
}
