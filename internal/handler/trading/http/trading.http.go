package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/guregu/null/v6"
	"github.com/krobus00/trading-service/internal/auth"
	"github.com/krobus00/trading-service/internal/entity"
	orderService "github.com/krobus00/trading-service/internal/service/order"
	positionService "github.com/krobus00/trading-service/internal/service/position"
	"github.com/shopspring/decimal"
)

var errUserIDMissing = errors.New("user id is required")

type SubmitOrderRequest struct {
	OrderID  string `json:"order_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

type SubmitOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type OrderEventResponse struct {
	Status    string  `json:"status"`
	Price     *string `json:"price,omitempty"`
	Error     *string `json:"error,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type OrderResponse struct {
	OrderID     string              `json:"order_id"`
	Symbol      string              `json:"symbol"`
	Side        string              `json:"side"`
	Type        string              `json:"type"`
	Quantity    string              `json:"quantity"`
	Price       *string             `json:"price,omitempty"`
	Status      string              `json:"status"`
	CreatedAt   int64               `json:"created_at"`
	LatestEvent *OrderEventResponse `json:"latest_event,omitempty"`
}

type PositionResponse struct {
	Symbol       string `json:"symbol"`
	Quantity     string `json:"quantity"`
	AveragePrice string `json:"average_price"`
}

type Handler struct {
	orderService    *orderService.OrderService
	positionService *positionService.PositionService
}

func NewTradingHTTPHandler(orderSvc *orderService.OrderService, positionSvc *positionService.PositionService) *Handler {
	return &Handler{
		orderService:    orderSvc,
		positionService: positionSvc,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/trading/v1/orders", h.Orders)
	mux.HandleFunc("/trading/v1/positions", h.ListPositions)
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.SubmitOrder(w, r)
	case http.MethodGet:
		h.ListOrders(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	userID, err := authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json body"})
		return
	}

	submitReq, err := mapHTTPRequestToSubmitRequest(userID, &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	command, err := h.orderService.Submit(r.Context(), submitReq)
	if err != nil {
		switch {
		case errors.Is(err, orderService.ErrDuplicateOrder):
			writeJSON(w, http.StatusConflict, map[string]any{"error": "duplicate order id"})
		case errors.Is(err, orderService.ErrCreateCommandFailed), errors.Is(err, orderService.ErrPublishCommandFailed):
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		default:
			// entity validation errors
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, SubmitOrderResponse{
		OrderID: command.OrderID,
		Status:  string(command.Status),
	})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch orders"})
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, mapOrderToHTTPResponse(order))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	userID, err := authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	positions, err := h.positionService.ComputePositions(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to fetch positions"})
		return
	}

	resp := make([]PositionResponse, 0, len(positions))
	for _, position := range positions {
		resp = append(resp, PositionResponse{
			Symbol:       position.Symbol,
			Quantity:     position.Quantity.String(),
			AveragePrice: position.AveragePrice.String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func mapHTTPRequestToSubmitRequest(userID string, req *SubmitOrderRequest) (orderService.SubmitOrderRequest, error) {
	if strings.TrimSpace(req.Symbol) == "" || strings.TrimSpace(req.Side) == "" || strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Quantity) == "" {
		return orderService.SubmitOrderRequest{}, errors.New("missing required fields")
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return orderService.SubmitOrderRequest{}, errors.New("invalid quantity")
	}

	var price *decimal.Decimal
	if strings.TrimSpace(req.Price) != "" {
		parsed, err := decimal.NewFromString(req.Price)
		if err != nil {
			return orderService.SubmitOrderRequest{}, errors.New("invalid price")
		}
		price = &parsed
	}

	return orderService.SubmitOrderRequest{
		UserID:   userID,
		OrderID:  null.NewString(req.OrderID, req.OrderID != "").Ptr(),
		Symbol:   req.Symbol,
		Side:     entity.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side))),
		Type:     entity.OrderType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Quantity: quantity,
		Price:    price,
	}, nil
}

func mapOrderToHTTPResponse(order orderService.OrderWithLatestEvent) OrderResponse {
	var price *string
	if order.Command.Price != nil {
		v := order.Command.Price.String()
		price = &v
	}

	resp := OrderResponse{
		OrderID:   order.Command.OrderID,
		Symbol:    order.Command.Symbol,
		Side:      string(order.Command.Side),
		Type:      string(order.Command.Type),
		Quantity:  order.Command.Quantity.String(),
		Price:     price,
		Status:    string(order.Command.Status),
		CreatedAt: order.Command.CreatedAt.UnixMilli(),
	}

	if order.LatestEvent != nil {
		var eventPrice *string
		if order.LatestEvent.Price != nil {
			v := order.LatestEvent.Price.String()
			eventPrice = &v
		}

		resp.LatestEvent = &OrderEventResponse{
			Status:    string(order.LatestEvent.Status),
			Price:     eventPrice,
			Error:     order.LatestEvent.Error,
			Timestamp: order.LatestEvent.Timestamp.UnixMilli(),
		}
	}

	return resp
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// authenticate checks the service api key and resolves the acting user.
// Real user authentication is owned by the identity subsystem; the gateway
// trusts the X-User-Id header placed by it.
func authenticate(r *http.Request) (string, error) {
	if err := auth.ValidateAPIKey(r.Header.Get("X-API-Key")); err != nil {
		return "", err
	}

	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		return "", errUserIDMissing
	}

	return userID, nil
}
