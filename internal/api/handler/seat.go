package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SeatHandler は座席APIのハンドラー
type SeatHandler struct {
	sessions SessionFactory
}

// NewSeatHandler はSeatHandlerを作成する
func NewSeatHandler(sessions SessionFactory) *SeatHandler {
	return &SeatHandler{sessions: sessions}
}

type AvailableSeatsResponse struct {
	Seats []int `json:"seats"`
}

// ListAvailable は空席の座席番号一覧を昇順で取得する
func (h *SeatHandler) ListAvailable(c echo.Context) error {
	session := h.sessions()
	defer session.Close()

	seats, err := session.AvailableSeats(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if seats == nil {
		seats = []int{}
	}
	return c.JSON(http.StatusOK, AvailableSeatsResponse{Seats: seats})
}

// CountAvailable は空席数を取得する
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	session := h.sessions()
	defer session.Close()

	count, err := session.AvailableSeatCount(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}
