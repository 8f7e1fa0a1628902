package service

import (
	"context"
	"time"

	"ctacte/internal/dto"
	"ctacte/internal/model"
	"ctacte/internal/repository"
	"ctacte/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type PagoService interface {
	RegistrarPago(ctx context.Context, creadoPor uuid.UUID, clienteID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.MovimientoResponse, error)
}

type pagoService struct {
	cuentas    CuentaService
	repo       repository.CuentaRepository
	dispatcher *worker.Dispatcher
}

func NewPagoService(cuentas CuentaService, repo repository.CuentaRepository, dispatcher *worker.Dispatcher) PagoService {
	return &pagoService{cuentas: cuentas, repo: repo, dispatcher: dispatcher}
}

// RegistrarPago registra un pago del cliente sobre su cuenta corriente.
// Los rechazos (cuenta inexistente, crédito deshabilitado, sin deuda, monto
// mayor al saldo) se detectan antes de mutar el ledger.
func (s *pagoService) RegistrarPago(ctx context.Context, creadoPor uuid.UUID, clienteID uuid.UUID, req dto.RegistrarPagoRequest) (*dto.MovimientoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}

	cuenta, err := s.repo.FindByClienteID(ctx, clienteID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}
	if !cuenta.CreditoHabilitado {
		return nil, ErrCreditoDeshabilitado
	}
	// Nada que pagar: el saldo es cero (o polvo de redondeo).
	if cuenta.SaldoActual.LessThanOrEqual(toleranciaRedondeo) {
		return nil, ErrSinDeuda
	}

	var fechaPago *time.Time
	if req.Fecha != nil {
		if f, err := time.Parse("2006-01-02", *req.Fecha); err == nil {
			fechaPago = &f
		}
	}

	// Acreditar re-valida la guarda dentro del alcance exclusivo de la cuenta:
	// el chequeo de arriba es solo pre-flight sobre un snapshot.
	mov, err := s.cuentas.Acreditar(ctx, clienteID, MovimientoOp{
		Concepto:   model.ConceptoPago,
		Monto:      req.Monto,
		Referencia: req.Referencia,
		Notas:      req.Notas,
		FechaPago:  fechaPago,
		CreadoPor:  creadoPor,
	})
	if err != nil {
		return nil, err
	}

	// Recibo por email — best-effort, fire & forget.
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueRecibo(ctx, worker.ReciboPayload{
			MovimientoID: mov.ID.String(),
			ClienteID:    clienteID.String(),
		}); err != nil {
			log.Warn().Err(err).Str("movimiento_id", mov.ID.String()).Msg("no se pudo encolar el recibo")
		}
	}

	return movimientoToResponse(mov), nil
}
