package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ctacte/internal/dto"
	"ctacte/internal/model"
	"ctacte/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// toleranciaRedondeo es la tolerancia fija de 0.01 para el chequeo de créditos
// contra el saldo adeudado. No es configurable por moneda.
var toleranciaRedondeo = decimal.New(1, -2)

// maxIntentos acota los reintentos internos ante conflictos transitorios del
// store antes de devolver ErrConflictoConcurrencia al llamador.
const maxIntentos = 3

// MovimientoOp son los metadatos de un débito o crédito a registrar.
type MovimientoOp struct {
	Concepto   string
	Monto      decimal.Decimal
	Referencia *string
	Notas      *string
	FechaPago  *time.Time
	CreadoPor  uuid.UUID
}

type CuentaService interface {
	// RegistrarVenta registra el débito que el POS envía al cerrar una venta en
	// cuenta corriente. Si la guarda lo rechaza, la venta debe abortarse.
	RegistrarVenta(ctx context.Context, creadoPor uuid.UUID, req dto.VentaCuentaRequest) (*dto.MovimientoResponse, error)
	// Debitar incrementa el saldo (venta, nota_debito); Acreditar lo reduce
	// (pago, nota_credito). Ambos validan la guarda de crédito dentro del mismo
	// alcance exclusivo por cuenta que el alta del movimiento.
	Debitar(ctx context.Context, clienteID uuid.UUID, op MovimientoOp) (*model.MovimientoCuenta, error)
	Acreditar(ctx context.Context, clienteID uuid.UUID, op MovimientoOp) (*model.MovimientoCuenta, error)
	// AnularMovimiento agrega el movimiento inverso y marca el original como
	// anulado. Nunca borra: ambas entradas quedan visibles en el historial.
	AnularMovimiento(ctx context.Context, anuladoPor uuid.UUID, movimientoID uuid.UUID, motivo string) (*dto.AnulacionResponse, error)
	ObtenerCuenta(ctx context.Context, clienteID uuid.UUID) (*dto.CuentaResponse, error)
	ListarMovimientos(ctx context.Context, clienteID uuid.UUID, f dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	ListarCuentas(ctx context.Context, f dto.CuentaFilter) (*dto.CuentaListResponse, error)
}

type cuentaService struct {
	repo  repository.CuentaRepository
	locks keyedMutex
}

func NewCuentaService(repo repository.CuentaRepository) CuentaService {
	return &cuentaService{repo: repo}
}

// keyedMutex serializa operaciones por cuenta dentro del proceso. El lock de
// fila (FOR UPDATE) cubre despliegues con varias instancias; este mutex evita
// que dos handlers del mismo proceso compitan por la misma fila. Nunca hay un
// lock global: cuentas distintas operan en paralelo.
type keyedMutex struct{ mus sync.Map }

func (k *keyedMutex) lock(key uuid.UUID) func() {
	v, _ := k.mus.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Balance engine ───────────────────────────────────────────────────────────

func (s *cuentaService) Debitar(ctx context.Context, clienteID uuid.UUID, op MovimientoOp) (*model.MovimientoCuenta, error) {
	return s.registrar(ctx, clienteID, model.TipoDebito, op)
}

func (s *cuentaService) Acreditar(ctx context.Context, clienteID uuid.UUID, op MovimientoOp) (*model.MovimientoCuenta, error) {
	return s.registrar(ctx, clienteID, model.TipoCredito, op)
}

func (s *cuentaService) registrar(ctx context.Context, clienteID uuid.UUID, tipo string, op MovimientoOp) (*model.MovimientoCuenta, error) {
	if !op.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}

	pre, err := s.repo.FindByClienteID(ctx, clienteID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}

	unlock := s.locks.lock(pre.ID)
	defer unlock()

	var mov *model.MovimientoCuenta
	err = s.conReintentos(func() error {
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			cuenta, err := s.repo.FindByIDForUpdateTx(tx, pre.ID)
			if err != nil {
				return ErrCuentaNoEncontrada
			}
			m := &model.MovimientoCuenta{
				Tipo:       tipo,
				Concepto:   op.Concepto,
				Monto:      op.Monto,
				Referencia: op.Referencia,
				Notas:      op.Notas,
				FechaPago:  op.FechaPago,
				CreadoPor:  op.CreadoPor,
			}
			if err := s.appendTx(tx, cuenta, m, true); err != nil {
				return err
			}
			mov = m
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// appendTx valida la guarda de crédito y agrega el movimiento. Debe ejecutarse
// con el lock de la fila de la cuenta ya tomado: la lectura del saldo, el
// chequeo de la guarda y el insert son un único alcance exclusivo — nunca una
// lectura previa separada.
func (s *cuentaService) appendTx(tx *gorm.DB, cuenta *model.CuentaCorriente, m *model.MovimientoCuenta, conGuarda bool) error {
	if !cuenta.CreditoHabilitado {
		return ErrCreditoDeshabilitado
	}

	saldo := cuenta.SaldoActual
	if conGuarda {
		if m.Tipo == model.TipoDebito {
			if lim := cuenta.Limite(); !lim.PermiteDebito(saldo, m.Monto) {
				return &ErrLimiteExcedido{Disponible: lim.Disponible(saldo)}
			}
		} else if m.Monto.GreaterThan(saldo.Add(toleranciaRedondeo)) {
			return &ErrExcedeSaldo{SaldoActual: saldo}
		}
	}

	numero, err := s.repo.NextNumeroTx(tx, cuenta.ID)
	if err != nil {
		return err
	}

	m.CuentaID = cuenta.ID
	m.Numero = numero
	m.SaldoAnterior = saldo
	m.SaldoPosterior = saldo.Add(m.Delta())

	if err := s.repo.CreateMovimientoTx(tx, m); err != nil {
		return err
	}
	if err := s.repo.UpdateSaldoTx(tx, cuenta.ID, m.SaldoPosterior); err != nil {
		return err
	}
	cuenta.SaldoActual = m.SaldoPosterior
	return nil
}

// conReintentos ejecuta fn con reintentos acotados sobre conflictos
// transitorios del store; los errores de validación y de política nunca se
// reintentan.
func (s *cuentaService) conReintentos(fn func() error) error {
	var err error
	for intento := 0; intento < maxIntentos; intento++ {
		if err = fn(); err == nil || !esTransitorio(err) {
			return err
		}
		time.Sleep(time.Duration(intento+1) * 10 * time.Millisecond)
	}
	return ErrConflictoConcurrencia
}

// esTransitorio detecta conflictos a nivel store que ameritan reintentar con un
// snapshot fresco: deadlocks y fallas de serialización de Postgres.
func esTransitorio(err error) bool {
	if errors.Is(err, ErrConflictoConcurrencia) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access")
}

// ── RegistrarVenta ───────────────────────────────────────────────────────────

func (s *cuentaService) RegistrarVenta(ctx context.Context, creadoPor uuid.UUID, req dto.VentaCuentaRequest) (*dto.MovimientoResponse, error) {
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, ErrClienteNoEncontrado
	}

	mov, err := s.Debitar(ctx, clienteID, MovimientoOp{
		Concepto:   model.ConceptoVenta,
		Monto:      req.Monto,
		Referencia: req.Referencia,
		Notas:      req.Notas,
		CreadoPor:  creadoPor,
	})
	if err != nil {
		return nil, err
	}
	return movimientoToResponse(mov), nil
}

// ── AnularMovimiento ─────────────────────────────────────────────────────────

func (s *cuentaService) AnularMovimiento(ctx context.Context, anuladoPor uuid.UUID, movimientoID uuid.UUID, motivo string) (*dto.AnulacionResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, ErrMotivoRequerido
	}

	orig, err := s.repo.FindMovimientoByID(ctx, movimientoID)
	if err != nil {
		return nil, ErrMovimientoNoEncontrado
	}

	unlock := s.locks.lock(orig.CuentaID)
	defer unlock()

	var resp *dto.AnulacionResponse
	err = s.conReintentos(func() error {
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			cuenta, err := s.repo.FindByIDForUpdateTx(tx, orig.CuentaID)
			if err != nil {
				return ErrCuentaNoEncontrada
			}
			// Re-lee el original dentro del alcance exclusivo: otro handler pudo
			// anularlo entre la lectura inicial y la toma del lock.
			original, err := s.repo.FindMovimientoByIDTx(tx, movimientoID)
			if err != nil {
				return ErrMovimientoNoEncontrado
			}
			if original.Anulado {
				return ErrMovimientoYaAnulado
			}

			tipoInverso := model.TipoCredito
			if original.Tipo == model.TipoCredito {
				tipoInverso = model.TipoDebito
			}

			// El par original/inverso queda marcado como anulado: el saldo es la
			// suma de los movimientos no anulados y el par neto es cero. La
			// inversa se registra sin guarda — restituye la deuda real aunque
			// supere el límite vigente.
			inverso := &model.MovimientoCuenta{
				Tipo:            tipoInverso,
				Concepto:        original.Concepto,
				Monto:           original.Monto,
				CreadoPor:       anuladoPor,
				Anulado:         true,
				MotivoAnulacion: &motivo,
				ReferenciaID:    &original.ID,
			}
			if err := s.appendTx(tx, cuenta, inverso, false); err != nil {
				return err
			}
			if err := s.repo.MarcarAnuladoTx(tx, original.ID, motivo); err != nil {
				return err
			}
			original.Anulado = true
			original.MotivoAnulacion = &motivo

			resp = &dto.AnulacionResponse{
				Original: *movimientoToResponse(original),
				Inverso:  *movimientoToResponse(inverso),
				Saldo:    inverso.SaldoPosterior,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ── Consultas ────────────────────────────────────────────────────────────────

func (s *cuentaService) ObtenerCuenta(ctx context.Context, clienteID uuid.UUID) (*dto.CuentaResponse, error) {
	cuenta, err := s.repo.FindByClienteID(ctx, clienteID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}
	ultimo, err := s.repo.UltimoMovimiento(ctx, cuenta.ID)
	if err != nil {
		return nil, err
	}
	return cuentaToResponse(cuenta, ultimo), nil
}

func (s *cuentaService) ListarMovimientos(ctx context.Context, clienteID uuid.UUID, f dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	cuenta, err := s.repo.FindByClienteID(ctx, clienteID)
	if err != nil {
		return nil, ErrCuentaNoEncontrada
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}

	movs, total, err := s.repo.ListMovimientos(ctx, cuenta.ID, f)
	if err != nil {
		return nil, err
	}

	items := make([]dto.MovimientoResponse, 0, len(movs))
	for i := range movs {
		items = append(items, *movimientoToResponse(&movs[i]))
	}
	return &dto.MovimientoListResponse{
		Data:       items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages(total, f.Limit),
	}, nil
}

func (s *cuentaService) ListarCuentas(ctx context.Context, f dto.CuentaFilter) (*dto.CuentaListResponse, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	cuentas, total, err := s.repo.ListCuentas(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CuentaResponse, 0, len(cuentas))
	for i := range cuentas {
		ultimo, err := s.repo.UltimoMovimiento(ctx, cuentas[i].ID)
		if err != nil {
			return nil, err
		}
		items = append(items, *cuentaToResponse(&cuentas[i], ultimo))
	}
	return &dto.CuentaListResponse{
		Data:       items,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: totalPages(total, f.Limit),
	}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func totalPages(total int64, limit int) int {
	if limit < 1 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func movimientoToResponse(m *model.MovimientoCuenta) *dto.MovimientoResponse {
	var refID *string
	if m.ReferenciaID != nil {
		s := m.ReferenciaID.String()
		refID = &s
	}
	var fechaPago *string
	if m.FechaPago != nil {
		f := m.FechaPago.Format("2006-01-02")
		fechaPago = &f
	}
	return &dto.MovimientoResponse{
		ID:              m.ID.String(),
		Numero:          m.Numero,
		Tipo:            m.Tipo,
		Concepto:        m.Concepto,
		Monto:           m.Monto,
		SaldoAnterior:   m.SaldoAnterior,
		SaldoPosterior:  m.SaldoPosterior,
		Referencia:      m.Referencia,
		Notas:           m.Notas,
		FechaPago:       fechaPago,
		CreadoPor:       m.CreadoPor.String(),
		Anulado:         m.Anulado,
		MotivoAnulacion: m.MotivoAnulacion,
		ReferenciaID:    refID,
		CreatedAt:       m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func cuentaToResponse(c *model.CuentaCorriente, ultimo *model.MovimientoCuenta) *dto.CuentaResponse {
	nombre := ""
	if c.Cliente != nil {
		nombre = c.Cliente.Nombre
	}

	lim := c.Limite()
	limite := dto.LimiteResponse{Ilimitado: lim.Ilimitado()}
	var disponible *decimal.Decimal
	if !lim.Ilimitado() {
		monto := lim.Monto()
		limite.Monto = &monto
		d := lim.Disponible(c.SaldoActual)
		disponible = &d
	}

	resp := &dto.CuentaResponse{
		ClienteID:         c.ClienteID.String(),
		Cliente:           nombre,
		CreditoHabilitado: c.CreditoHabilitado,
		Limite:            limite,
		Saldo:             c.SaldoActual,
		Disponible:        disponible,
	}
	if ultimo != nil {
		resp.UltimoMovimiento = &dto.UltimoMovimientoResponse{
			Concepto: ultimo.Concepto,
			Monto:    ultimo.Monto,
			Fecha:    ultimo.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	return resp
}
