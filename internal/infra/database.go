package infra

import (
	"fmt"

	"ctacte/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (composite unique index with ordering, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies AutoMigrate plus schema patches. Exposed separately so
// integration tests can migrate a throwaway container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Cliente{},
		&model.CuentaCorriente{},
		&model.MovimientoCuenta{},
		&model.Usuario{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot fully handle.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// numero is assigned under the account row lock; the unique index is the
		// backstop if two instances ever race past it.
		`CREATE UNIQUE INDEX IF NOT EXISTS uni_movimientos_cuenta_numero
		     ON movimientos_cuenta (cuenta_id, numero)`,
		// Covering index for the history listing order (newest first).
		`CREATE INDEX IF NOT EXISTS idx_movimientos_cuenta_orden
		     ON movimientos_cuenta (cuenta_id, created_at DESC, numero DESC)`,
		// Partial index for the con_saldo account listing.
		`CREATE INDEX IF NOT EXISTS idx_cuentas_con_saldo
		     ON cuentas_corrientes (saldo_actual)
		     WHERE saldo_actual > 0`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
