package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"homecheff/internal/catalog"
	"homecheff/internal/repository"
)

func (h *OrderHandler) GetProduct(c echo.Context) error {
	p, err := h.store.ProductByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if repository.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found"})
		}
		h.logger.Error("Failed to load product", zap.String("productID", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	d, err := p.Detail()
	if err != nil {
		h.logger.Error("Corrupt product detail", zap.String("productID", p.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, catalog.Wrap(d))
}
