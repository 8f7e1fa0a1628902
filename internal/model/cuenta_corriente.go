package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LimiteCredito distingue explícitamente entre límite finito e ilimitado.
// Nunca se representa "sin límite" con un monto centinela (0, -1, MaxInt):
// las comparaciones contra centinelas ya produjeron bugs silenciosos en el
// sistema anterior.
type LimiteCredito struct {
	ilimitado bool
	monto     decimal.Decimal
}

func LimiteFinito(monto decimal.Decimal) LimiteCredito {
	return LimiteCredito{monto: monto}
}

func LimiteIlimitado() LimiteCredito {
	return LimiteCredito{ilimitado: true}
}

func (l LimiteCredito) Ilimitado() bool { return l.ilimitado }

// Monto solo tiene sentido cuando el límite es finito.
func (l LimiteCredito) Monto() decimal.Decimal { return l.monto }

// PermiteDebito indica si un débito de monto sobre saldo queda dentro del límite.
func (l LimiteCredito) PermiteDebito(saldo, monto decimal.Decimal) bool {
	if l.ilimitado {
		return true
	}
	return saldo.Add(monto).LessThanOrEqual(l.monto)
}

// Disponible devuelve el crédito restante para un límite finito.
// Para límites ilimitados el llamador debe consultar Ilimitado() primero.
func (l LimiteCredito) Disponible(saldo decimal.Decimal) decimal.Decimal {
	return l.monto.Sub(saldo)
}

// CuentaCorriente es la cuenta de crédito rotativo de un cliente.
// SaldoActual es derivado: siempre igual a la suma con signo de los montos de
// movimientos no anulados; se mantiene en la misma transacción que cada alta
// de movimiento.
type CuentaCorriente struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	CreditoHabilitado bool      `gorm:"not null;default:true"`
	// LimiteCredito NULL = crédito ilimitado. Limite() expone la variante tipada.
	LimiteCredito *decimal.Decimal `gorm:"type:decimal(12,2)"`
	SaldoActual   decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Cliente *Cliente `gorm:"foreignKey:ClienteID"`
}

// TableName overrides GORM's default pluralization (cuenta_corrientes → cuentas_corrientes).
func (CuentaCorriente) TableName() string { return "cuentas_corrientes" }

func (c *CuentaCorriente) Limite() LimiteCredito {
	if c.LimiteCredito == nil {
		return LimiteIlimitado()
	}
	return LimiteFinito(*c.LimiteCredito)
}
