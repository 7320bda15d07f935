package handlers

import (
	"net/http"
	"strconv"

	"schoolprops/internal/common"
	"schoolprops/internal/models"
	"schoolprops/internal/services"

	"github.com/labstack/echo/v4"
)

// ItemHandlers serves the catalog. Writes are routed behind the admin role.
type ItemHandlers struct {
	inventory services.InventoryService
}

func NewItemHandlers(inventory services.InventoryService) *ItemHandlers {
	return &ItemHandlers{inventory: inventory}
}

// ListItemsRequest represents query parameters for listing items
type ListItemsRequest struct {
	Query    string `query:"q"`
	Category string `query:"category"`
	Status   string `query:"status"`
	Limit    int    `query:"limit"`
	Offset   int    `query:"offset"`
}

func (h *ItemHandlers) ListItems(c echo.Context) error {
	var req ListItemsRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid query parameters")
	}
	limit, offset, err := common.ValidatePaginationParams(req.Limit, req.Offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	filter := &models.ItemFilter{Query: req.Query, Category: req.Category, Limit: limit, Offset: offset}
	if req.Status != "" {
		status := models.ItemStatus(req.Status)
		filter.Status = &status
	}
	items, err := h.inventory.ListItems(c.Request().Context(), filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *ItemHandlers) GetItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	item, err := h.inventory.GetItem(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// CreateItemRequest represents the catalog item creation payload
type CreateItemRequest struct {
	Name              string            `json:"name"`
	Category          string            `json:"category"`
	QuantityTotal     int               `json:"quantity_total"`
	Status            models.ItemStatus `json:"status"`
	LowStockThreshold int               `json:"low_stock_threshold"`
}

func (h *ItemHandlers) CreateItem(c echo.Context) error {
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	item, err := h.inventory.CreateItem(c.Request().Context(), &models.InventoryItem{
		Name:              req.Name,
		Category:          req.Category,
		QuantityTotal:     req.QuantityTotal,
		Status:            req.Status,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ItemHandlers) UpdateItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	var req models.ItemUpdate
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	item, err := h.inventory.UpdateItem(c.Request().Context(), id, &req)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ItemHandlers) DeleteItem(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if err := h.inventory.DeleteItem(c.Request().Context(), id); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LowStock lists items at or below threshold, or below their own alert level when
// threshold is omitted.
func (h *ItemHandlers) LowStock(c echo.Context) error {
	threshold := 0
	if raw := c.QueryParam("threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return common.SendValidationError(c, "threshold", "must be an integer")
		}
		threshold = v
	}
	items, err := h.inventory.LowStock(c.Request().Context(), threshold)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *ItemHandlers) Reservations(c echo.Context) error {
	id, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendDomainError(c, err)
	}
	reservations, err := h.inventory.ActiveReservations(c.Request().Context(), id)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if reservations == nil {
		reservations = []*models.Reservation{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reservations": reservations})
}
