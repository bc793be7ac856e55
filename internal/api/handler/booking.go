package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
)

// BookingHandler は予約APIのハンドラー
type BookingHandler struct {
	sessions SessionFactory
}

// NewBookingHandler はBookingHandlerを作成する
func NewBookingHandler(sessions SessionFactory) *BookingHandler {
	return &BookingHandler{sessions: sessions}
}

type BookByCountRequest struct {
	Customer  string `json:"customer" validate:"required,max=80"`
	Counts    []int  `json:"counts" validate:"required,min=1,dive,min=0"`
	Adjoining bool   `json:"adjoining"`
}

type BookBySeatsRequest struct {
	Customer         string  `json:"customer" validate:"required,max=80"`
	SeatsPerCategory [][]int `json:"seats_per_category" validate:"required,min=1"`
}

type BookingPayload struct {
	ID       int     `json:"id"`
	Seat     int     `json:"seat" validate:"required,min=1"`
	Customer string  `json:"customer" validate:"required,max=80"`
	Category int     `json:"category" validate:"min=0"`
	Price    float64 `json:"price" validate:"min=0"`
}

type CancelRequest struct {
	Bookings []BookingPayload `json:"bookings" validate:"required,min=1,dive"`
}

type BookingResponse struct {
	ID       int     `json:"id"`
	Seat     int     `json:"seat"`
	Customer string  `json:"customer"`
	Category int     `json:"category"`
	Price    float64 `json:"price"`
}

type BookResult struct {
	Booked   bool              `json:"booked"`
	Bookings []BookingResponse `json:"bookings"`
}

type CancelResult struct {
	Cancelled bool `json:"cancelled"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, Seat: b.Seat, Customer: b.Customer,
		Category: b.Category, Price: b.Price,
	}
}

func toBookingResponses(bookings []*booking.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return resp
}

// BookByCount はカテゴリ別枚数指定の予約を行う
// 要求を満たせない場合は予約せず booked=false を返す
func (h *BookingHandler) BookByCount(c echo.Context) error {
	var req BookByCountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なリクエスト"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session := h.sessions()
	defer session.Close()

	booked, err := session.BookByCount(c.Request().Context(), req.Customer, req.Counts, req.Adjoining)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(booked) == 0 {
		return c.JSON(http.StatusConflict, BookResult{Booked: false, Bookings: []BookingResponse{}})
	}
	return c.JSON(http.StatusCreated, BookResult{Booked: true, Bookings: toBookingResponses(booked)})
}

// BookBySeats は座席番号指定の予約を行う
func (h *BookingHandler) BookBySeats(c echo.Context) error {
	var req BookBySeatsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なリクエスト"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session := h.sessions()
	defer session.Close()

	booked, err := session.BookBySeats(c.Request().Context(), req.Customer, req.SeatsPerCategory)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(booked) == 0 {
		return c.JSON(http.StatusConflict, BookResult{Booked: false, Bookings: []BookingResponse{}})
	}
	return c.JSON(http.StatusCreated, BookResult{Booked: true, Bookings: toBookingResponses(booked)})
}

// List は予約一覧を取得する
// customer クエリパラメータを省略すると全件を座席番号順で返す
func (h *BookingHandler) List(c echo.Context) error {
	session := h.sessions()
	defer session.Close()

	bookings, err := session.Bookings(c.Request().Context(), c.QueryParam("customer"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, toBookingResponses(bookings))
}

// Cancel は予約の取り消しを行う
// 一件でも照合に失敗すると全体を取り消さず cancelled=false を返す
func (h *BookingHandler) Cancel(c echo.Context) error {
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "無効なリクエスト"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	claims := make([]*booking.Booking, 0, len(req.Bookings))
	for _, p := range req.Bookings {
		if p.ID > 0 {
			b, err := booking.NewIdentified(p.ID, p.Seat, p.Customer, p.Category, p.Price)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			claims = append(claims, b)
			continue
		}
		claims = append(claims, booking.New(p.Seat, p.Customer, p.Category, p.Price))
	}

	session := h.sessions()
	defer session.Close()

	cancelled, err := session.Cancel(c.Request().Context(), claims)
	if err != nil {
		if errors.Is(err, booking.ErrMixedIDPolicy) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if !cancelled {
		return c.JSON(http.StatusConflict, CancelResult{Cancelled: false})
	}
	return c.JSON(http.StatusOK, CancelResult{Cancelled: true})
}
