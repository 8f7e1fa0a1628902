package repository

import (
	"context"
	"errors"

	"ctacte/internal/dto"
	"ctacte/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CuentaRepository es el store del ledger de cuenta corriente. Los movimientos
// solo se insertan — jamás hay Update/Delete de filas de movimiento, con la
// única excepción del flag anulado del original al registrar la inversa.
type CuentaRepository interface {
	DB() *gorm.DB // exposes the DB for transaction creation in service layer

	CreateCuentaTx(tx *gorm.DB, c *model.CuentaCorriente) error
	FindByClienteID(ctx context.Context, clienteID uuid.UUID) (*model.CuentaCorriente, error)
	// FindByClienteIDForUpdateTx toma el lock de fila de la cuenta: el guard y
	// el append posterior corren dentro del mismo alcance exclusivo.
	FindByClienteIDForUpdateTx(tx *gorm.DB, clienteID uuid.UUID) (*model.CuentaCorriente, error)
	FindByIDForUpdateTx(tx *gorm.DB, cuentaID uuid.UUID) (*model.CuentaCorriente, error)
	UpdateSaldoTx(tx *gorm.DB, cuentaID uuid.UUID, saldo decimal.Decimal) error
	UpdateCredito(ctx context.Context, cuentaID uuid.UUID, habilitado bool, limite *decimal.Decimal) error

	NextNumeroTx(tx *gorm.DB, cuentaID uuid.UUID) (int64, error)
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCuenta) error
	FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCuenta, error)
	FindMovimientoByIDTx(tx *gorm.DB, id uuid.UUID) (*model.MovimientoCuenta, error)
	MarcarAnuladoTx(tx *gorm.DB, movimientoID uuid.UUID, motivo string) error

	ListMovimientos(ctx context.Context, cuentaID uuid.UUID, f dto.MovimientoFilter) ([]model.MovimientoCuenta, int64, error)
	ListCuentas(ctx context.Context, f dto.CuentaFilter) ([]model.CuentaCorriente, int64, error)
	UltimoMovimiento(ctx context.Context, cuentaID uuid.UUID) (*model.MovimientoCuenta, error)
}

type cuentaRepo struct{ db *gorm.DB }

func NewCuentaRepository(db *gorm.DB) CuentaRepository { return &cuentaRepo{db: db} }

func (r *cuentaRepo) DB() *gorm.DB { return r.db }

func (r *cuentaRepo) CreateCuentaTx(tx *gorm.DB, c *model.CuentaCorriente) error {
	return tx.Create(c).Error
}

func (r *cuentaRepo) FindByClienteID(ctx context.Context, clienteID uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := r.db.WithContext(ctx).Preload("Cliente").Where("cliente_id = ?", clienteID).First(&c).Error
	return &c, err
}

func (r *cuentaRepo) FindByClienteIDForUpdateTx(tx *gorm.DB, clienteID uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cliente_id = ?", clienteID).First(&c).Error
	return &c, err
}

func (r *cuentaRepo) FindByIDForUpdateTx(tx *gorm.DB, cuentaID uuid.UUID) (*model.CuentaCorriente, error) {
	var c model.CuentaCorriente
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, cuentaID).Error
	return &c, err
}

func (r *cuentaRepo) UpdateSaldoTx(tx *gorm.DB, cuentaID uuid.UUID, saldo decimal.Decimal) error {
	return tx.Model(&model.CuentaCorriente{}).Where("id = ?", cuentaID).
		Update("saldo_actual", saldo).Error
}

func (r *cuentaRepo) UpdateCredito(ctx context.Context, cuentaID uuid.UUID, habilitado bool, limite *decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.CuentaCorriente{}).Where("id = ?", cuentaID).
		Updates(map[string]interface{}{
			"credito_habilitado": habilitado,
			"limite_credito":     limite,
		}).Error
}

// NextNumeroTx asigna el número monotónico por cuenta. Solo es seguro bajo el
// lock de la fila de la cuenta (FindByClienteIDForUpdateTx / FindByIDForUpdateTx).
func (r *cuentaRepo) NextNumeroTx(tx *gorm.DB, cuentaID uuid.UUID) (int64, error) {
	var numero int64
	err := tx.Raw("SELECT COALESCE(MAX(numero), 0) + 1 FROM movimientos_cuenta WHERE cuenta_id = ?", cuentaID).
		Scan(&numero).Error
	return numero, err
}

func (r *cuentaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCuenta) error {
	return tx.Create(m).Error
}

func (r *cuentaRepo) FindMovimientoByID(ctx context.Context, id uuid.UUID) (*model.MovimientoCuenta, error) {
	var m model.MovimientoCuenta
	err := r.db.WithContext(ctx).First(&m, id).Error
	return &m, err
}

func (r *cuentaRepo) FindMovimientoByIDTx(tx *gorm.DB, id uuid.UUID) (*model.MovimientoCuenta, error) {
	var m model.MovimientoCuenta
	err := tx.First(&m, id).Error
	return &m, err
}

func (r *cuentaRepo) MarcarAnuladoTx(tx *gorm.DB, movimientoID uuid.UUID, motivo string) error {
	return tx.Model(&model.MovimientoCuenta{}).Where("id = ?", movimientoID).
		Updates(map[string]interface{}{
			"anulado":          true,
			"motivo_anulacion": motivo,
		}).Error
}

func (r *cuentaRepo) ListMovimientos(ctx context.Context, cuentaID uuid.UUID, f dto.MovimientoFilter) ([]model.MovimientoCuenta, int64, error) {
	var movs []model.MovimientoCuenta
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.MovimientoCuenta{}).Where("cuenta_id = ?", cuentaID)

	if f.Tipo != "" {
		q = q.Where("tipo = ?", f.Tipo)
	}
	if f.Concepto != "" {
		q = q.Where("concepto = ?", f.Concepto)
	}
	if f.Desde != "" {
		q = q.Where("DATE(created_at) >= ?", f.Desde)
	}
	if f.Hasta != "" {
		q = q.Where("DATE(created_at) <= ?", f.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Newest-first; numero desempata cuando dos movimientos comparten created_at.
	err := q.Order("created_at DESC, numero DESC").
		Offset(offset).Limit(f.Limit).
		Find(&movs).Error

	return movs, total, err
}

func (r *cuentaRepo) ListCuentas(ctx context.Context, f dto.CuentaFilter) ([]model.CuentaCorriente, int64, error) {
	var cuentas []model.CuentaCorriente
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.CuentaCorriente{}).
		Joins("JOIN clientes ON clientes.id = cuentas_corrientes.cliente_id")

	if f.Busqueda != "" {
		like := "%" + f.Busqueda + "%"
		q = q.Where("clientes.nombre ILIKE ? OR clientes.documento ILIKE ?", like, like)
	}
	if f.ConSaldo {
		q = q.Where("cuentas_corrientes.saldo_actual > 0")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Cliente").
		Order("clientes.nombre ASC").
		Offset(offset).Limit(f.Limit).
		Find(&cuentas).Error

	return cuentas, total, err
}

func (r *cuentaRepo) UltimoMovimiento(ctx context.Context, cuentaID uuid.UUID) (*model.MovimientoCuenta, error) {
	var m model.MovimientoCuenta
	err := r.db.WithContext(ctx).Where("cuenta_id = ?", cuentaID).
		Order("created_at DESC, numero DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
