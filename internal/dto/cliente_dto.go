package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearClienteRequest da de alta un cliente en el directorio. Si
// credito_habilitado es true se crea la cuenta corriente asociada;
// limite_credito omitido o null significa crédito ilimitado.
type CrearClienteRequest struct {
	Nombre            string           `json:"nombre"             validate:"required,min=2,max=150"`
	Documento         *string          `json:"documento"          validate:"omitempty,min=7,max=13"`
	Email             *string          `json:"email"              validate:"omitempty,email"`
	Telefono          *string          `json:"telefono"`
	Direccion         *string          `json:"direccion"`
	CreditoHabilitado bool             `json:"credito_habilitado"`
	LimiteCredito     *decimal.Decimal `json:"limite_credito"     validate:"omitempty,gt=0"`
}

type ActualizarClienteRequest struct {
	Nombre    *string `json:"nombre"    validate:"omitempty,min=2,max=150"`
	Documento *string `json:"documento" validate:"omitempty,min=7,max=13"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Telefono  *string `json:"telefono"`
	Direccion *string `json:"direccion"`
	// Cambios de crédito: son una operación del directorio, nunca un movimiento
	// del ledger. LimiteIlimitado=true pisa cualquier limite_credito enviado.
	CreditoHabilitado *bool            `json:"credito_habilitado"`
	LimiteCredito     *decimal.Decimal `json:"limite_credito"   validate:"omitempty,gt=0"`
	LimiteIlimitado   *bool            `json:"limite_ilimitado"`
}

type ClienteFilter struct {
	Busqueda string `form:"busqueda"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClienteResponse struct {
	ID                string          `json:"id"`
	Nombre            string          `json:"nombre"`
	Documento         *string         `json:"documento"`
	Email             *string         `json:"email"`
	Telefono          *string         `json:"telefono"`
	Direccion         *string         `json:"direccion"`
	Activo            bool            `json:"activo"`
	CreditoHabilitado bool            `json:"credito_habilitado"`
	Limite            *LimiteResponse `json:"limite,omitempty"`
}

type ClienteListResponse struct {
	Data       []ClienteResponse `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
