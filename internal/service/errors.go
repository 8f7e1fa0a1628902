package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio del ledger de cuenta corriente. Los handlers los traducen
// a códigos HTTP; ninguno deja estado parcial: toda operación rechazada es un
// no-op atómico sobre el ledger.
var (
	ErrCuentaNoEncontrada     = errors.New("cuenta corriente no encontrada")
	ErrClienteNoEncontrado    = errors.New("cliente no encontrado")
	ErrMovimientoNoEncontrado = errors.New("movimiento no encontrado")
	ErrMovimientoYaAnulado    = errors.New("el movimiento ya está anulado")
	ErrCreditoDeshabilitado   = errors.New("el cliente no tiene cuenta corriente habilitada")
	ErrSinDeuda               = errors.New("la cuenta no registra deuda pendiente")
	ErrMontoInvalido          = errors.New("el monto debe ser mayor a cero")
	ErrMotivoRequerido        = errors.New("la anulación requiere un motivo")
	// ErrConflictoConcurrencia se devuelve luego de agotar los reintentos
	// internos sobre un conflicto transitorio del store. Es reintentable.
	ErrConflictoConcurrencia = errors.New("conflicto de concurrencia, reintente la operación")
)

// ErrLimiteExcedido indica que un débito superaría el límite de crédito finito.
// Disponible es el crédito restante para que el llamador corrija el monto.
type ErrLimiteExcedido struct {
	Disponible decimal.Decimal
}

func (e *ErrLimiteExcedido) Error() string {
	return fmt.Sprintf("límite de crédito excedido: disponible %s", e.Disponible.StringFixed(2))
}

// ErrExcedeSaldo indica que un crédito supera la deuda pendiente (más la
// tolerancia de redondeo). SaldoActual es la deuda vigente al momento del chequeo.
type ErrExcedeSaldo struct {
	SaldoActual decimal.Decimal
}

func (e *ErrExcedeSaldo) Error() string {
	return fmt.Sprintf("el monto excede el saldo adeudado: saldo actual %s", e.SaldoActual.StringFixed(2))
}
