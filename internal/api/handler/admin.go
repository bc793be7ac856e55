package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminHandler はデータストア管理APIのハンドラー
type AdminHandler struct {
	service StoreAdminInterface
}

// NewAdminHandler はAdminHandlerを作成する
func NewAdminHandler(s StoreAdminInterface) *AdminHandler {
	return &AdminHandler{service: s}
}

type InitDataStoreRequest struct {
	SeatCount int       `json:"seat_count" validate:"required,min=1"`
	PriceList []float64 `json:"price_list" validate:"required,min=1,dive,min=0"`
}

type PriceListResponse struct {
	Prices []float64 `json:"prices"`
}

// InitDataStore はデータストアを初期化する
// 既存の座席・カテゴリ・予約はすべて破棄される
func (h *AdminHandler) InitDataStore(c echo.Context) error {
	var req InitDataStoreRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なリクエスト"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.InitDataStore(c.Request().Context(), req.SeatCount, req.PriceList); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "initialized"})
}

// Prices はカテゴリ別価格の一覧をカテゴリ番号順で取得する
func (h *AdminHandler) Prices(c echo.Context) error {
	prices, err := h.service.PriceList(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if prices == nil {
		prices = []float64{}
	}
	return c.JSON(http.StatusOK, PriceListResponse{Prices: prices})
}
