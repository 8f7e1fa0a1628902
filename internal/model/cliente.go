package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente es el registro del directorio de clientes (facturación y contacto).
// El directorio es el único lugar donde se administran la habilitación de
// crédito y el límite de la cuenta corriente asociada — nunca el ledger.
type Cliente struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"index;not null"`
	Documento *string   `gorm:"uniqueIndex"` // CUIT o DNI
	Email     *string
	Telefono  *string
	Direccion *string
	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
