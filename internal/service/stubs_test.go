package service_test

// Stubs en memoria para los tests unitarios de servicios. Los métodos *Tx
// aceptan tx == nil: runTx ejecuta la función directamente cuando no hay DB.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ctacte/internal/dto"
	"ctacte/internal/model"
	"ctacte/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stubCuentaRepo is an in-memory CuentaRepository.
type stubCuentaRepo struct {
	mu      sync.Mutex
	cuentas map[uuid.UUID]*model.CuentaCorriente
	movs    []*model.MovimientoCuenta

	// failCount hace fallar las próximas N inserciones de movimiento con
	// failErr, para ejercitar la lógica de reintentos.
	failCount int
	failErr   error
}

func newStubCuentaRepo() *stubCuentaRepo {
	return &stubCuentaRepo{cuentas: make(map[uuid.UUID]*model.CuentaCorriente)}
}

var _ repository.CuentaRepository = (*stubCuentaRepo)(nil)

func (r *stubCuentaRepo) DB() *gorm.DB { return nil }

func (r *stubCuentaRepo) CreateCuentaTx(_ *gorm.DB, c *model.CuentaCorriente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.cuentas[c.ID] = c
	return nil
}

func (r *stubCuentaRepo) findByCliente(clienteID uuid.UUID) (*model.CuentaCorriente, bool) {
	for _, c := range r.cuentas {
		if c.ClienteID == clienteID {
			return c, true
		}
	}
	return nil, false
}

func (r *stubCuentaRepo) FindByClienteID(_ context.Context, clienteID uuid.UUID) (*model.CuentaCorriente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.findByCliente(clienteID)
	if !ok {
		return nil, errors.New("record not found")
	}
	copia := *c
	return &copia, nil
}

func (r *stubCuentaRepo) FindByClienteIDForUpdateTx(_ *gorm.DB, clienteID uuid.UUID) (*model.CuentaCorriente, error) {
	return r.FindByClienteID(context.Background(), clienteID)
}

func (r *stubCuentaRepo) FindByIDForUpdateTx(_ *gorm.DB, cuentaID uuid.UUID) (*model.CuentaCorriente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[cuentaID]
	if !ok {
		return nil, errors.New("record not found")
	}
	copia := *c
	return &copia, nil
}

func (r *stubCuentaRepo) UpdateSaldoTx(_ *gorm.DB, cuentaID uuid.UUID, saldo decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[cuentaID]
	if !ok {
		return errors.New("record not found")
	}
	c.SaldoActual = saldo
	return nil
}

func (r *stubCuentaRepo) UpdateCredito(_ context.Context, cuentaID uuid.UUID, habilitado bool, limite *decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[cuentaID]
	if !ok {
		return errors.New("record not found")
	}
	c.CreditoHabilitado = habilitado
	c.LimiteCredito = limite
	return nil
}

func (r *stubCuentaRepo) NextNumeroTx(_ *gorm.DB, cuentaID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var max int64
	for _, m := range r.movs {
		if m.CuentaID == cuentaID && m.Numero > max {
			max = m.Numero
		}
	}
	return max + 1, nil
}

func (r *stubCuentaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCuenta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCount > 0 {
		r.failCount--
		return r.failErr
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.movs = append(r.movs, m)
	return nil
}

func (r *stubCuentaRepo) FindMovimientoByID(_ context.Context, id uuid.UUID) (*model.MovimientoCuenta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movs {
		if m.ID == id {
			copia := *m
			return &copia, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *stubCuentaRepo) FindMovimientoByIDTx(_ *gorm.DB, id uuid.UUID) (*model.MovimientoCuenta, error) {
	return r.FindMovimientoByID(context.Background(), id)
}

func (r *stubCuentaRepo) MarcarAnuladoTx(_ *gorm.DB, movimientoID uuid.UUID, motivo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movs {
		if m.ID == movimientoID {
			m.Anulado = true
			m.MotivoAnulacion = &motivo
			return nil
		}
	}
	return errors.New("record not found")
}

func (r *stubCuentaRepo) ListMovimientos(_ context.Context, cuentaID uuid.UUID, f dto.MovimientoFilter) ([]model.MovimientoCuenta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []model.MovimientoCuenta
	for _, m := range r.movs {
		if m.CuentaID != cuentaID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		if f.Concepto != "" && m.Concepto != f.Concepto {
			continue
		}
		fecha := m.CreatedAt.Format("2006-01-02")
		if f.Desde != "" && fecha < f.Desde {
			continue
		}
		if f.Hasta != "" && fecha > f.Hasta {
			continue
		}
		matched = append(matched, *m)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Numero > matched[j].Numero })

	total := int64(len(matched))
	offset := (f.Page - 1) * f.Limit
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *stubCuentaRepo) ListCuentas(_ context.Context, f dto.CuentaFilter) ([]model.CuentaCorriente, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []model.CuentaCorriente
	for _, c := range r.cuentas {
		if f.ConSaldo && !c.SaldoActual.IsPositive() {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ClienteID.String() < matched[j].ClienteID.String()
	})

	total := int64(len(matched))
	offset := (f.Page - 1) * f.Limit
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *stubCuentaRepo) UltimoMovimiento(_ context.Context, cuentaID uuid.UUID) (*model.MovimientoCuenta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ultimo *model.MovimientoCuenta
	for _, m := range r.movs {
		if m.CuentaID == cuentaID && (ultimo == nil || m.Numero > ultimo.Numero) {
			ultimo = m
		}
	}
	if ultimo == nil {
		return nil, nil
	}
	copia := *ultimo
	return &copia, nil
}

// movimientosDe devuelve los movimientos de la cuenta ordenados por numero.
func (r *stubCuentaRepo) movimientosDe(cuentaID uuid.UUID) []model.MovimientoCuenta {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoCuenta
	for _, m := range r.movs {
		if m.CuentaID == cuentaID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out
}

func (r *stubCuentaRepo) saldoDe(cuentaID uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cuentas[cuentaID].SaldoActual
}

// stubClienteRepo is an in-memory ClienteRepository.
type stubClienteRepo struct {
	mu       sync.Mutex
	clientes map[uuid.UUID]*model.Cliente
}

func newStubClienteRepo() *stubClienteRepo {
	return &stubClienteRepo{clientes: make(map[uuid.UUID]*model.Cliente)}
}

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

func (r *stubClienteRepo) DB() *gorm.DB { return nil }

func (r *stubClienteRepo) CreateTx(_ *gorm.DB, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.clientes[c.ID] = c
	return nil
}

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clientes[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copia := *c
	return &copia, nil
}

func (r *stubClienteRepo) Update(_ context.Context, c *model.Cliente) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clientes[c.ID]; !ok {
		return errors.New("record not found")
	}
	r.clientes[c.ID] = c
	return nil
}

func (r *stubClienteRepo) List(_ context.Context, f dto.ClienteFilter) ([]model.Cliente, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Cliente
	for _, c := range r.clientes {
		if c.Activo {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, int64(len(out)), nil
}

// ── Fixtures ─────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// nuevaCuenta registra una cuenta corriente habilitada y devuelve el cliente id.
// limite == "" crea una cuenta con crédito ilimitado.
func nuevaCuenta(repo *stubCuentaRepo, limite string) uuid.UUID {
	clienteID := uuid.New()
	cuenta := &model.CuentaCorriente{
		ClienteID:         clienteID,
		CreditoHabilitado: true,
		SaldoActual:       decimal.Zero,
	}
	if limite != "" {
		l := d(limite)
		cuenta.LimiteCredito = &l
	}
	_ = repo.CreateCuentaTx(nil, cuenta)
	return clienteID
}
