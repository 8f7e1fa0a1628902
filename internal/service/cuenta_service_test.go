package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ctacte/internal/dto"
	"ctacte/internal/model"
	"ctacte/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func op(concepto, monto string) service.MovimientoOp {
	return service.MovimientoOp{Concepto: concepto, Monto: d(monto), CreadoPor: uuid.New()}
}

// ── Guarda de crédito ────────────────────────────────────────────────────────

func TestDebitarRechazaMontoSobreLimite(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "1500"))

	var limErr *service.ErrLimiteExcedido
	require.ErrorAs(t, err, &limErr)
	assert.True(t, limErr.Disponible.Equal(d("1000")), "disponible: %s", limErr.Disponible)

	// Un rechazo es un no-op: sin movimientos y saldo intacto.
	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	assert.True(t, cuenta.SaldoActual.IsZero())
	assert.Empty(t, repo.movimientosDe(cuenta.ID))
}

func TestDebitarPermiteLlegarExactoAlLimite(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "700"))
	require.NoError(t, err)

	// saldo + monto == limite pasa; un centavo más no.
	mov, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "300"))
	require.NoError(t, err)
	assert.True(t, mov.SaldoPosterior.Equal(d("1000")))

	_, err = svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "0.01"))
	var limErr *service.ErrLimiteExcedido
	require.ErrorAs(t, err, &limErr)
	assert.True(t, limErr.Disponible.IsZero())
}

func TestDebitarConLimiteIlimitado(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "10000"))
	require.NoError(t, err)
	mov, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "500"))
	require.NoError(t, err)
	assert.True(t, mov.SaldoPosterior.Equal(d("10500")))
}

func TestAcreditarRechazaMontoMayorAlSaldo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "500"))
	require.NoError(t, err)

	_, err = svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "600"))
	var saldoErr *service.ErrExcedeSaldo
	require.ErrorAs(t, err, &saldoErr)
	assert.True(t, saldoErr.SaldoActual.Equal(d("500")))
}

func TestAcreditarToleraUnCentavoDeRedondeo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "500"))
	require.NoError(t, err)

	// saldo + 0.01 entra por tolerancia; 0.02 no.
	_, err = svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "500.02"))
	var saldoErr *service.ErrExcedeSaldo
	require.ErrorAs(t, err, &saldoErr)

	mov, err := svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "500.01"))
	require.NoError(t, err)
	assert.True(t, mov.SaldoPosterior.Equal(d("-0.01")))
}

func TestRegistrarRechazaMontoNoPositivo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "0"))
	assert.ErrorIs(t, err, service.ErrMontoInvalido)
	_, err = svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "-5"))
	assert.ErrorIs(t, err, service.ErrMontoInvalido)
}

func TestRegistrarRechazaCuentaDeshabilitada(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")
	cuenta, _ := repo.findByCliente(clienteID)
	cuenta.CreditoHabilitado = false

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "10"))
	assert.ErrorIs(t, err, service.ErrCreditoDeshabilitado)
}

func TestRegistrarCuentaInexistente(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)

	_, err := svc.Debitar(ctx, uuid.New(), op(model.ConceptoVenta, "10"))
	assert.ErrorIs(t, err, service.ErrCuentaNoEncontrada)
}

// ── Cadena de saldos ─────────────────────────────────────────────────────────

func TestCadenaDeSaldosYNumeracion(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "300"))
	require.NoError(t, err)
	_, err = svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "120.50"))
	require.NoError(t, err)
	_, err = svc.Debitar(ctx, clienteID, op(model.ConceptoNotaDebito, "19.99"))
	require.NoError(t, err)
	_, err = svc.Acreditar(ctx, clienteID, op(model.ConceptoNotaCredito, "50"))
	require.NoError(t, err)

	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	movs := repo.movimientosDe(cuenta.ID)
	require.Len(t, movs, 4)

	// numero monotónico y saldo_posterior de cada movimiento encadena con el
	// saldo_anterior del siguiente.
	saldo := decimal.Zero
	for i, m := range movs {
		assert.Equal(t, int64(i+1), m.Numero)
		assert.True(t, m.SaldoAnterior.Equal(saldo), "mov %d: anterior %s, esperado %s", m.Numero, m.SaldoAnterior, saldo)
		saldo = saldo.Add(m.Delta())
		assert.True(t, m.SaldoPosterior.Equal(saldo))
	}
	assert.True(t, cuenta.SaldoActual.Equal(saldo))
	assert.True(t, saldo.Equal(d("149.49")))
}

// ── RegistrarVenta ───────────────────────────────────────────────────────────

func TestRegistrarVenta(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")

	ref := "TICKET-0042"
	resp, err := svc.RegistrarVenta(ctx, uuid.New(), dto.VentaCuentaRequest{
		ClienteID:  clienteID.String(),
		Monto:      d("250.75"),
		Referencia: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TipoDebito, resp.Tipo)
	assert.Equal(t, model.ConceptoVenta, resp.Concepto)
	assert.True(t, resp.SaldoPosterior.Equal(d("250.75")))
	require.NotNil(t, resp.Referencia)
	assert.Equal(t, ref, *resp.Referencia)
}

func TestRegistrarVentaClienteIDInvalido(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)

	_, err := svc.RegistrarVenta(ctx, uuid.New(), dto.VentaCuentaRequest{
		ClienteID: "no-es-uuid",
		Monto:     d("10"),
	})
	assert.ErrorIs(t, err, service.ErrClienteNoEncontrado)
}

// ── Anulación ────────────────────────────────────────────────────────────────

func TestAnularPagoRestauraDeuda(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "500"))
	require.NoError(t, err)
	pago, err := svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "200"))
	require.NoError(t, err)

	resp, err := svc.AnularMovimiento(ctx, uuid.New(), pago.ID, "pago registrado dos veces")
	require.NoError(t, err)

	// La inversa de un crédito es un débito por el mismo monto.
	assert.Equal(t, model.TipoDebito, resp.Inverso.Tipo)
	assert.Equal(t, model.ConceptoPago, resp.Inverso.Concepto)
	assert.True(t, resp.Inverso.Monto.Equal(d("200")))
	assert.True(t, resp.Saldo.Equal(d("500")))

	// Ambas entradas quedan en el historial, marcadas como anuladas y enlazadas.
	assert.True(t, resp.Original.Anulado)
	assert.True(t, resp.Inverso.Anulado)
	require.NotNil(t, resp.Inverso.ReferenciaID)
	assert.Equal(t, pago.ID.String(), *resp.Inverso.ReferenciaID)

	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	movs := repo.movimientosDe(cuenta.ID)
	require.Len(t, movs, 3)

	// Invariante: el saldo es la suma con signo de los movimientos NO anulados.
	suma := decimal.Zero
	for i := range movs {
		if !movs[i].Anulado {
			suma = suma.Add(movs[i].Delta())
		}
	}
	assert.True(t, cuenta.SaldoActual.Equal(suma))
}

func TestAnularVentaReduceSaldo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")

	venta, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "300"))
	require.NoError(t, err)
	_, err = svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "100"))
	require.NoError(t, err)

	resp, err := svc.AnularMovimiento(ctx, uuid.New(), venta.ID, "venta cargada al cliente equivocado")
	require.NoError(t, err)
	assert.Equal(t, model.TipoCredito, resp.Inverso.Tipo)
	assert.True(t, resp.Saldo.Equal(d("100")))
}

func TestAnularSinMotivo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")
	venta, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "100"))
	require.NoError(t, err)

	_, err = svc.AnularMovimiento(ctx, uuid.New(), venta.ID, "   ")
	assert.ErrorIs(t, err, service.ErrMotivoRequerido)
}

func TestAnularDosVeces(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")
	venta, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "100"))
	require.NoError(t, err)

	_, err = svc.AnularMovimiento(ctx, uuid.New(), venta.ID, "duplicada")
	require.NoError(t, err)
	_, err = svc.AnularMovimiento(ctx, uuid.New(), venta.ID, "duplicada otra vez")
	assert.ErrorIs(t, err, service.ErrMovimientoYaAnulado)
}

func TestAnularMovimientoInexistente(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)

	_, err := svc.AnularMovimiento(ctx, uuid.New(), uuid.New(), "no existe")
	assert.ErrorIs(t, err, service.ErrMovimientoNoEncontrado)
}

// La inversa no pasa por la guarda: restituir la deuda real puede dejar el
// saldo por encima del límite vigente.
func TestAnularPagoPuedeSuperarElLimite(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "100")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "100"))
	require.NoError(t, err)
	pago, err := svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "100"))
	require.NoError(t, err)
	_, err = svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "100"))
	require.NoError(t, err)

	resp, err := svc.AnularMovimiento(ctx, uuid.New(), pago.ID, "cheque rechazado")
	require.NoError(t, err)
	assert.True(t, resp.Saldo.Equal(d("200")), "saldo: %s", resp.Saldo)
}

// ── Concurrencia y reintentos ────────────────────────────────────────────────

func TestDebitosConcurrentesSerializados(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "5"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	assert.True(t, cuenta.SaldoActual.Equal(d("100")))

	// Sin huecos ni duplicados en la numeración, y la cadena cierra.
	movs := repo.movimientosDe(cuenta.ID)
	require.Len(t, movs, n)
	saldo := decimal.Zero
	for i, m := range movs {
		assert.Equal(t, int64(i+1), m.Numero)
		assert.True(t, m.SaldoAnterior.Equal(saldo))
		saldo = m.SaldoPosterior
	}
}

func TestReintentaConflictosTransitorios(t *testing.T) {
	repo := newStubCuentaRepo()
	repo.failCount = 2
	repo.failErr = errors.New("ERROR: deadlock detected (SQLSTATE 40P01)")
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	mov, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "50"))
	require.NoError(t, err)
	assert.True(t, mov.SaldoPosterior.Equal(d("50")))
	assert.Len(t, repo.movimientosDe(mov.CuentaID), 1)
}

func TestReintentosAgotadosDevuelveConflicto(t *testing.T) {
	repo := newStubCuentaRepo()
	repo.failCount = 3
	repo.failErr = errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)")
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "50"))
	assert.ErrorIs(t, err, service.ErrConflictoConcurrencia)

	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	assert.True(t, cuenta.SaldoActual.IsZero())
	assert.Empty(t, repo.movimientosDe(cuenta.ID))
}

func TestErroresDePoliticaNoSeReintentan(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "100")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "150"))
	var limErr *service.ErrLimiteExcedido
	require.ErrorAs(t, err, &limErr)
	// Un único intento: el rechazo de la guarda no deja rastros.
	cuenta, _ := repo.FindByClienteID(ctx, clienteID)
	assert.Empty(t, repo.movimientosDe(cuenta.ID))
}

// ── Consultas ────────────────────────────────────────────────────────────────

func TestObtenerCuenta(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "1000")

	_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "400"))
	require.NoError(t, err)

	resp, err := svc.ObtenerCuenta(ctx, clienteID)
	require.NoError(t, err)
	assert.True(t, resp.Saldo.Equal(d("400")))
	assert.False(t, resp.Limite.Ilimitado)
	require.NotNil(t, resp.Disponible)
	assert.True(t, resp.Disponible.Equal(d("600")))
	require.NotNil(t, resp.UltimoMovimiento)
	assert.Equal(t, model.ConceptoVenta, resp.UltimoMovimiento.Concepto)
}

func TestObtenerCuentaIlimitadaSinDisponible(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	resp, err := svc.ObtenerCuenta(ctx, clienteID)
	require.NoError(t, err)
	assert.True(t, resp.Limite.Ilimitado)
	assert.Nil(t, resp.Limite.Monto)
	assert.Nil(t, resp.Disponible)
	assert.Nil(t, resp.UltimoMovimiento)
}

func TestListarMovimientosPaginaYFiltra(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	clienteID := nuevaCuenta(repo, "")

	for i := 0; i < 5; i++ {
		_, err := svc.Debitar(ctx, clienteID, op(model.ConceptoVenta, "10"))
		require.NoError(t, err)
	}
	_, err := svc.Acreditar(ctx, clienteID, op(model.ConceptoPago, "25"))
	require.NoError(t, err)

	resp, err := svc.ListarMovimientos(ctx, clienteID, dto.MovimientoFilter{Page: 1, Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(6), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Data, 4)
	// Más reciente primero.
	assert.Equal(t, int64(6), resp.Data[0].Numero)

	soloPagos, err := svc.ListarMovimientos(ctx, clienteID, dto.MovimientoFilter{Concepto: model.ConceptoPago})
	require.NoError(t, err)
	assert.Equal(t, int64(1), soloPagos.Total)
}

func TestListarCuentasConSaldo(t *testing.T) {
	repo := newStubCuentaRepo()
	svc := service.NewCuentaService(repo)
	conDeuda := nuevaCuenta(repo, "")
	nuevaCuenta(repo, "") // cuenta en cero

	_, err := svc.Debitar(ctx, conDeuda, op(model.ConceptoVenta, "75"))
	require.NoError(t, err)

	todas, err := svc.ListarCuentas(ctx, dto.CuentaFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), todas.Total)

	deudoras, err := svc.ListarCuentas(ctx, dto.CuentaFilter{ConSaldo: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), deudoras.Total)
	assert.True(t, deudoras.Data[0].Saldo.Equal(d("75")))
}
