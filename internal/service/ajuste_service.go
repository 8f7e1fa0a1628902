package service

import (
	"context"

	"ctacte/internal/dto"
	"ctacte/internal/model"

	"github.com/google/uuid"
)

type AjusteService interface {
	RegistrarAjuste(ctx context.Context, creadoPor uuid.UUID, clienteID uuid.UUID, req dto.RegistrarAjusteRequest) (*dto.MovimientoResponse, error)
}

type ajusteService struct {
	cuentas CuentaService
}

func NewAjusteService(cuentas CuentaService) AjusteService {
	return &ajusteService{cuentas: cuentas}
}

// RegistrarAjuste registra una corrección manual como nota de débito o de
// crédito. La descripción es obligatoria; las notas se pasan por las mismas
// guardas que ventas y pagos.
func (s *ajusteService) RegistrarAjuste(ctx context.Context, creadoPor uuid.UUID, clienteID uuid.UUID, req dto.RegistrarAjusteRequest) (*dto.MovimientoResponse, error) {
	notas := req.Descripcion
	if req.Notas != nil && *req.Notas != "" {
		notas = notas + " — " + *req.Notas
	}

	op := MovimientoOp{
		Monto:     req.Monto,
		Notas:     &notas,
		CreadoPor: creadoPor,
	}

	var mov *model.MovimientoCuenta
	var err error
	if req.Direccion == model.TipoDebito {
		op.Concepto = model.ConceptoNotaDebito
		mov, err = s.cuentas.Debitar(ctx, clienteID, op)
	} else {
		op.Concepto = model.ConceptoNotaCredito
		mov, err = s.cuentas.Acreditar(ctx, clienteID, op)
	}
	if err != nil {
		return nil, err
	}
	return movimientoToResponse(mov), nil
}
