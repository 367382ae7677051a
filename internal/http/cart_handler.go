package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/cart-sync/internal/domain"
	"github.com/fjod/go_cart/cart-sync/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxQuantity = 99

// CartStore is the subset of the store the handlers call.
type CartStore interface {
	Items() []domain.CartLine
	State() store.State
	Load(ctx context.Context)
	AddToCart(ctx context.Context, line domain.CartLine) bool
	RemoveFromCart(ctx context.Context, productID, color, size string) bool
	UpdateQuantity(ctx context.Context, productID string, quantity int, color, size string)
	ClearCart(ctx context.Context)
}

type CartHandler struct {
	cart    CartStore
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(cart CartStore, timeout time.Duration, log *zap.Logger) *CartHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		log:     log,
	}
}

type AddItemRequestDTO struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage string  `json:"productImage"`
	Price        int64   `json:"price"`
	Quantity     int     `json:"quantity"`
	Option       string  `json:"option"`
	Color        string  `json:"color"`
	Size         string  `json:"size"`
	DiscountRate float64 `json:"discountRate"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items      []domain.CartLine `json:"items"`
	TotalPrice int64             `json:"totalPrice"`
	ItemCount  int               `json:"itemCount"`
	State      string            `json:"state"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, http.StatusOK)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Validate request
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}
	if req.DiscountRate < 0 || req.DiscountRate > 100 {
		respondError(w, http.StatusBadRequest, "invalid_discount", "discountRate must be between 0 and 100")
		return
	}

	h.cart.AddToCart(r.Context(), domain.CartLine{
		ProductID:    strings.TrimSpace(req.ProductID),
		ProductName:  req.ProductName,
		ProductImage: req.ProductImage,
		Price:        req.Price,
		Quantity:     req.Quantity,
		Option:       req.Option,
		Color:        req.Color,
		Size:         req.Size,
		DiscountRate: req.DiscountRate,
	})
	h.respondCart(w, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must not exceed 99")
		return
	}

	q := r.URL.Query()
	h.cart.UpdateQuantity(r.Context(), productID, req.Quantity, q.Get("color"), q.Get("size"))
	h.respondCart(w, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	q := r.URL.Query()
	h.cart.RemoveFromCart(r.Context(), productID, q.Get("color"), q.Get("size"))
	h.respondCart(w, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.ClearCart(r.Context())
	h.respondCart(w, http.StatusOK)
}

// Sync re-runs remote reconciliation and waits for it.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.cart.Load(ctx)
	h.respondCart(w, http.StatusOK)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int) {
	// totals come from the same copy as the items
	items := domain.Snapshot(h.cart.Items())
	if items == nil {
		items = domain.Snapshot{}
	}
	respondJSON(w, status, CartResponse{
		Items:      items,
		TotalPrice: items.TotalPrice(),
		ItemCount:  items.ItemCount(),
		State:      h.cart.State().String(),
	}, h.log)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	}, nil)
}
