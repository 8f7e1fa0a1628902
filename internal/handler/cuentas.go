package handler

import (
	"errors"
	"net/http"

	"ctacte/internal/apierror"
	"ctacte/internal/dto"
	"ctacte/internal/middleware"
	"ctacte/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CuentasHandler struct {
	cuentas service.CuentaService
	pagos   service.PagoService
	ajustes service.AjusteService
}

func NewCuentasHandler(cuentas service.CuentaService, pagos service.PagoService, ajustes service.AjusteService) *CuentasHandler {
	return &CuentasHandler{cuentas: cuentas, pagos: pagos, ajustes: ajustes}
}

// respondError traduce los errores de dominio del ledger a códigos HTTP.
// Los rechazos de guarda (409) incluyen en contexto el valor que el cliente
// necesita para corregir el monto.
func respondError(c *gin.Context, err error) {
	var limErr *service.ErrLimiteExcedido
	var saldoErr *service.ErrExcedeSaldo

	switch {
	case errors.As(err, &limErr):
		c.JSON(http.StatusConflict, apierror.NewWithCode("limite_excedido", limErr.Error(),
			map[string]string{"disponible": limErr.Disponible.StringFixed(2)}))
	case errors.As(err, &saldoErr):
		c.JSON(http.StatusConflict, apierror.NewWithCode("excede_saldo", saldoErr.Error(),
			map[string]string{"saldo_actual": saldoErr.SaldoActual.StringFixed(2)}))
	case errors.Is(err, service.ErrCuentaNoEncontrada),
		errors.Is(err, service.ErrClienteNoEncontrado),
		errors.Is(err, service.ErrMovimientoNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrConflictoConcurrencia):
		c.JSON(http.StatusServiceUnavailable, apierror.NewWithCode("conflicto_concurrencia", err.Error(), nil))
	case errors.Is(err, service.ErrCreditoDeshabilitado),
		errors.Is(err, service.ErrSinDeuda),
		errors.Is(err, service.ErrMontoInvalido),
		errors.Is(err, service.ErrMotivoRequerido),
		errors.Is(err, service.ErrMovimientoYaAnulado):
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

// RegistrarVenta godoc
// @Summary      Debitar una venta en cuenta corriente
// @Description  El POS registra el débito al cerrar una venta fiada. Rechaza con 409 si supera el crédito disponible.
// @Tags         cuentas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.VentaCuentaRequest true "Detalle del débito"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/cuentas/venta [post]
func (h *CuentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.VentaCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.cuentas.RegistrarVenta(c.Request.Context(), claims.UsuarioID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarPago godoc
// @Summary      Registrar un pago
// @Description  Acredita un pago del cliente contra su deuda y encola el envío del recibo por email.
// @Tags         cuentas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        cliente_id path string true "UUID del cliente"
// @Param        body body dto.RegistrarPagoRequest true "Detalle del pago"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/cuentas/{cliente_id}/pagos [post]
func (h *CuentasHandler) RegistrarPago(c *gin.Context) {
	clienteID, err := uuid.Parse(c.Param("cliente_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarPagoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.pagos.RegistrarPago(c.Request.Context(), claims.UsuarioID(), clienteID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarAjuste godoc
// @Summary      Registrar una nota de débito o crédito
// @Description  Corrección manual del saldo. Pasa por las mismas guardas que ventas y pagos.
// @Tags         cuentas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        cliente_id path string true "UUID del cliente"
// @Param        body body dto.RegistrarAjusteRequest true "Dirección, monto y descripción"
// @Success      201  {object} dto.MovimientoResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/cuentas/{cliente_id}/ajustes [post]
func (h *CuentasHandler) RegistrarAjuste(c *gin.Context) {
	clienteID, err := uuid.Parse(c.Param("cliente_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarAjusteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.ajustes.RegistrarAjuste(c.Request.Context(), claims.UsuarioID(), clienteID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AnularMovimiento godoc
// @Summary      Anular un movimiento
// @Description  Agrega el movimiento inverso y marca ambos como anulados. El historial nunca se borra.
// @Tags         cuentas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID del movimiento"
// @Param        body body dto.AnularMovimientoRequest true "Motivo de anulación"
// @Success      200  {object} dto.AnulacionResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/cuentas/movimientos/{id}/anular [post]
func (h *CuentasHandler) AnularMovimiento(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.AnularMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.cuentas.AnularMovimiento(c.Request.Context(), claims.UsuarioID(), id, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerCuenta godoc
// @Summary      Resumen de una cuenta corriente
// @Description  Saldo vigente, límite, crédito disponible y último movimiento.
// @Tags         cuentas
// @Produce      json
// @Security     BearerAuth
// @Param        cliente_id path string true "UUID del cliente"
// @Success      200 {object} dto.CuentaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cuentas/{cliente_id} [get]
func (h *CuentasHandler) ObtenerCuenta(c *gin.Context) {
	clienteID, err := uuid.Parse(c.Param("cliente_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.cuentas.ObtenerCuenta(c.Request.Context(), clienteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary      Historial de movimientos de una cuenta
// @Description  Lista paginada, más reciente primero. Incluye anulados.
// @Tags         cuentas
// @Produce      json
// @Security     BearerAuth
// @Param        cliente_id path  string true  "UUID del cliente"
// @Param        tipo       query string false "debito | credito"
// @Param        concepto   query string false "venta | pago | nota_debito | nota_credito"
// @Param        desde      query string false "Fecha YYYY-MM-DD"
// @Param        hasta      query string false "Fecha YYYY-MM-DD"
// @Param        page       query int    false "Página (default 1)"
// @Param        limit      query int    false "Registros por página (default 50, máx 100)"
// @Success      200 {object} dto.MovimientoListResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cuentas/{cliente_id}/movimientos [get]
func (h *CuentasHandler) ListarMovimientos(c *gin.Context) {
	clienteID, err := uuid.Parse(c.Param("cliente_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var filter dto.MovimientoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("filtros invalidos: "+err.Error()))
		return
	}
	resp, err := h.cuentas.ListarMovimientos(c.Request.Context(), clienteID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarCuentas godoc
// @Summary      Listar cuentas corrientes
// @Description  Resumen paginado de cuentas, con filtro por nombre/documento y por saldo deudor.
// @Tags         cuentas
// @Produce      json
// @Security     BearerAuth
// @Param        busqueda  query string false "Búsqueda por nombre o documento del cliente"
// @Param        con_saldo query bool   false "Solo cuentas con deuda"
// @Param        page      query int    false "Página (default 1)"
// @Param        limit     query int    false "Registros por página (default 20)"
// @Success      200 {object} dto.CuentaListResponse
// @Router       /v1/cuentas [get]
func (h *CuentasHandler) ListarCuentas(c *gin.Context) {
	var filter dto.CuentaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("filtros invalidos: "+err.Error()))
		return
	}
	resp, err := h.cuentas.ListarCuentas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
