package service

import (
	"context"

	"ctacte/internal/dto"
	"ctacte/internal/model"
	"ctacte/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClienteService administra el directorio de clientes. Es el único lugar donde
// se modifican la habilitación de crédito y el límite: el ledger los lee pero
// nunca los muta, y un cambio de límite jamás genera un movimiento.
type ClienteService interface {
	Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, f dto.ClienteFilter) (*dto.ClienteListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error)
}

type clienteService struct {
	repo       repository.ClienteRepository
	cuentaRepo repository.CuentaRepository
}

func NewClienteService(repo repository.ClienteRepository, cuentaRepo repository.CuentaRepository) ClienteService {
	return &clienteService{repo: repo, cuentaRepo: cuentaRepo}
}

func (s *clienteService) Crear(ctx context.Context, req dto.CrearClienteRequest) (*dto.ClienteResponse, error) {
	cliente := &model.Cliente{
		Nombre:    req.Nombre,
		Documento: req.Documento,
		Email:     req.Email,
		Telefono:  req.Telefono,
		Direccion: req.Direccion,
		Activo:    true,
	}

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, cliente); err != nil {
			return err
		}
		if req.CreditoHabilitado {
			// Flag de crédito habilitado crea la cuenta corriente en el acto.
			cuenta := &model.CuentaCorriente{
				ClienteID:         cliente.ID,
				CreditoHabilitado: true,
				LimiteCredito:     req.LimiteCredito,
				SaldoActual:       decimal.Zero,
			}
			return s.cuentaRepo.CreateCuentaTx(tx, cuenta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, cliente)
}

func (s *clienteService) Obtener(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}
	return s.buildResponse(ctx, cliente)
}

func (s *clienteService) Listar(ctx context.Context, f dto.ClienteFilter) (*dto.ClienteListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	clientes, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ClienteResponse, 0, len(clientes))
	for i := range clientes {
		resp, err := s.buildResponse(ctx, &clientes[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *resp)
	}
	return &dto.ClienteListResponse{
		Data:       items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages(total, f.Limit),
	}, nil
}

func (s *clienteService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarClienteRequest) (*dto.ClienteResponse, error) {
	cliente, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}

	if req.Nombre != nil {
		cliente.Nombre = *req.Nombre
	}
	if req.Documento != nil {
		cliente.Documento = req.Documento
	}
	if req.Email != nil {
		cliente.Email = req.Email
	}
	if req.Telefono != nil {
		cliente.Telefono = req.Telefono
	}
	if req.Direccion != nil {
		cliente.Direccion = req.Direccion
	}
	if err := s.repo.Update(ctx, cliente); err != nil {
		return nil, err
	}

	if err := s.aplicarCambiosCredito(ctx, cliente.ID, req); err != nil {
		return nil, err
	}
	return s.buildResponse(ctx, cliente)
}

// aplicarCambiosCredito sincroniza los campos de crédito de la cuenta con lo
// pedido al directorio. Crea la cuenta si el cliente se habilita por primera vez.
func (s *clienteService) aplicarCambiosCredito(ctx context.Context, clienteID uuid.UUID, req dto.ActualizarClienteRequest) error {
	if req.CreditoHabilitado == nil && req.LimiteCredito == nil && req.LimiteIlimitado == nil {
		return nil
	}

	cuenta, err := s.cuentaRepo.FindByClienteID(ctx, clienteID)
	if err != nil {
		// Sin cuenta previa: solo un habilitado explícito la crea.
		if req.CreditoHabilitado == nil || !*req.CreditoHabilitado {
			return nil
		}
		limite := req.LimiteCredito
		if req.LimiteIlimitado != nil && *req.LimiteIlimitado {
			limite = nil
		}
		nueva := &model.CuentaCorriente{
			ClienteID:         clienteID,
			CreditoHabilitado: true,
			LimiteCredito:     limite,
			SaldoActual:       decimal.Zero,
		}
		return s.cuentaRepo.CreateCuentaTx(s.cuentaRepo.DB(), nueva)
	}

	habilitado := cuenta.CreditoHabilitado
	if req.CreditoHabilitado != nil {
		habilitado = *req.CreditoHabilitado
	}
	limite := cuenta.LimiteCredito
	if req.LimiteIlimitado != nil && *req.LimiteIlimitado {
		limite = nil
	} else if req.LimiteCredito != nil {
		limite = req.LimiteCredito
	}
	return s.cuentaRepo.UpdateCredito(ctx, cuenta.ID, habilitado, limite)
}

func (s *clienteService) buildResponse(ctx context.Context, c *model.Cliente) (*dto.ClienteResponse, error) {
	resp := &dto.ClienteResponse{
		ID:        c.ID.String(),
		Nombre:    c.Nombre,
		Documento: c.Documento,
		Email:     c.Email,
		Telefono:  c.Telefono,
		Direccion: c.Direccion,
		Activo:    c.Activo,
	}

	cuenta, err := s.cuentaRepo.FindByClienteID(ctx, c.ID)
	if err != nil {
		return resp, nil // sin cuenta corriente
	}
	resp.CreditoHabilitado = cuenta.CreditoHabilitado

	lim := cuenta.Limite()
	limite := &dto.LimiteResponse{Ilimitado: lim.Ilimitado()}
	if !lim.Ilimitado() {
		monto := lim.Monto()
		limite.Monto = &monto
	}
	resp.Limite = limite
	return resp, nil
}
