package devserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/platefront/platefront/internal/logging"
	"github.com/platefront/platefront/internal/model"
	"github.com/platefront/platefront/internal/push"
)

const maxBodyBytes = 1 << 20

// Handler serves the request/response half of the server interface.
type Handler struct {
	store  *Store
	pub    push.Publisher
	logger *slog.Logger
}

func NewHandler(store *Store, pub push.Publisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{store: store, pub: pub, logger: logger}
}

// RegisterRoutes mounts the fixture API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.GetProducts)
	r.Get("/orders", h.ListOrders)
	r.Delete("/orders/{id}", h.DeleteOrder)

	r.Route("/users", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/doesUsernameExist", h.UsernameExists)
		r.Post("/doesEmailExist", h.EmailExists)
	})
}

type productsResponse struct {
	Products []model.Product         `json:"products"`
	Types    []model.ProductCategory `json:"types"`
}

func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, categories := h.store.Catalog()
	respondJSON(w, http.StatusOK, productsResponse{Products: products, Types: categories})
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Orders())
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	cred, ok := h.store.Authenticate(req.Username, req.Password)
	if !ok {
		h.logger.Debug("login rejected", "username", req.Username)
		respondError(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}
	respondJSON(w, http.StatusOK, cred)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username, email and password are required.")
		return
	}

	user, created := h.store.CreateUser(req.Username, req.Email, req.Password)
	if !created {
		respondError(w, http.StatusConflict, "That username or email is already being used.")
		return
	}

	cred := h.store.IssueToken(user)
	respondJSON(w, http.StatusCreated, cred)
}

func (h *Handler) UsernameExists(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.store.UsernameExists(req.Username))
}

func (h *Handler) EmailExists(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.store.EmailExists(req.Email))
}

// DeleteOrder removes an order and broadcasts the deletion batch. Requires
// an admin bearer token.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.bearerUser(r)
	if !ok || !user.IsAdmin {
		respondError(w, http.StatusForbidden, "Admin token required.")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order id.")
		return
	}
	if !h.store.DeleteOrder(id) {
		respondError(w, http.StatusNotFound, "No such order.")
		return
	}

	h.broadcastDeleted(r.Context(), []uuid.UUID{id})
	respondJSON(w, http.StatusOK, nil)
}

func (h *Handler) broadcastDeleted(ctx context.Context, ids []uuid.UUID) {
	msg, err := model.NewEnvelope(model.EventOrdersDeletedFromServer, model.DeletedOrders{IDs: ids})
	if err != nil {
		h.logger.Error("cannot encode deletion event", "error", err)
		return
	}
	if err := h.pub.Publish(ctx, model.TopicOrdersFromServer, msg); err != nil {
		h.logger.Error("cannot publish deletion event", "error", err)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Cannot read request body.")
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload.")
		return req, false
	}
	return req, true
}

func (h *Handler) bearerUser(r *http.Request) (*User, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil, false
	}
	return h.store.UserByToken(strings.TrimPrefix(auth, "Bearer "))
}
