package handler

import (
	"net/http"

	"ctacte/internal/dto"
	"ctacte/internal/service"

	"github.com/gin-gonic/gin"
)

type PreciosHandler struct{ svc service.PrecioService }

func NewPreciosHandler(svc service.PrecioService) *PreciosHandler {
	return &PreciosHandler{svc: svc}
}

// Calcular godoc
// @Summary      Calcular precio de venta
// @Description  Aplica la cascada costo → margen → IIBB → internos → IVA, redondeando a 2 decimales en cada etapa.
// @Tags         precios
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CalcularPrecioRequest true "Costo y porcentajes"
// @Success      200  {object} dto.CalcularPrecioResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/precios/calcular [post]
func (h *PreciosHandler) Calcular(c *gin.Context) {
	var req dto.CalcularPrecioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Calcular(req))
}
