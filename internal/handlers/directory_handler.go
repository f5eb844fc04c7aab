package handlers

import (
	"context"
	"net/http"

	"slabdesk/internal/backend"
	"slabdesk/internal/listing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Directory is the client and team part of the inventory API.
type Directory interface {
	ListClientes(ctx context.Context, params listing.Params) (*backend.ClienteList, error)
	CreateCliente(ctx context.Context, req backend.CreateClienteRequest) (*backend.Cliente, error)
	InviteBroker(ctx context.Context, req backend.InviteBrokerRequest) (*backend.User, error)
	UpdateUserStatus(ctx context.Context, userID string, active bool) (*backend.User, error)
	ResendInvite(ctx context.Context, userID string) error
}

// DraftPurger drops every draft of a user.
type DraftPurger interface {
	DeleteByOwner(ctx context.Context, ownerID string) error
}

type DirectoryHandler struct {
	logger    *zap.Logger
	directory Directory
	drafts    DraftPurger
}

func NewDirectoryHandler(logger *zap.Logger, directory Directory, drafts DraftPurger) *DirectoryHandler {
	return &DirectoryHandler{
		logger:    logger,
		directory: directory,
		drafts:    drafts,
	}
}

// ListClientes handles GET /api/v1/clientes
// @Summary      List clients
// @Tags         clientes
// @Produce      json
// @Security     BearerAuth
// @Param        search     query     string  false  "Name, email or phone"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Items per page"
// @Success      200        {object}  listing.Page[backend.Cliente]
// @Router       /clientes [get]
func (h *DirectoryHandler) ListClientes(c *gin.Context) {
	params, ok := bindListParams(c)
	if !ok {
		return
	}
	list, err := h.directory.ListClientes(requestContext(c), params)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing.NewPage(list.Clientes, list.Total, params))
}

// CreateCliente handles POST /api/v1/clientes
// @Summary      Create a client
// @Tags         clientes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Request-ID  header    string                        false  "Idempotency key"
// @Param        request       body      backend.CreateClienteRequest  true   "Client"
// @Success      201           {object}  backend.Cliente
// @Failure      400           {object}  ErrorResponse
// @Failure      409           {object}  ErrorResponse
// @Router       /clientes [post]
func (h *DirectoryHandler) CreateCliente(c *gin.Context) {
	var req backend.CreateClienteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cliente, err := h.directory.CreateCliente(requestContext(c), req)
	if err != nil {
		abort(c, err)
		return
	}
	h.logger.Info("Client created", zap.String("cliente_id", cliente.ID))
	c.JSON(http.StatusCreated, cliente)
}

// InviteBroker handles POST /api/v1/brokers/invite
// @Summary      Invite a broker
// @Tags         team
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      backend.InviteBrokerRequest  true  "Broker"
// @Success      201      {object}  backend.User
// @Failure      409      {object}  ErrorResponse
// @Router       /brokers/invite [post]
func (h *DirectoryHandler) InviteBroker(c *gin.Context) {
	var req backend.InviteBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.directory.InviteBroker(requestContext(c), req)
	if err != nil {
		abort(c, err)
		return
	}
	h.logger.Info("Broker invited", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

// UpdateUserStatus handles PATCH /api/v1/users/:id/status
// @Summary      Activate or deactivate a user
// @Description  Deactivating a user also discards the user's open link drafts.
// @Tags         team
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "User ID"
// @Param        request  body      UpdateUserStatusRequest  true  "Status"
// @Success      200      {object}  backend.User
// @Failure      404      {object}  ErrorResponse
// @Router       /users/{id}/status [patch]
func (h *DirectoryHandler) UpdateUserStatus(c *gin.Context) {
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	user, err := h.directory.UpdateUserStatus(requestContext(c), c.Param("id"), *req.IsActive)
	if err != nil {
		abort(c, err)
		return
	}

	if !user.IsActive && h.drafts != nil {
		if err := h.drafts.DeleteByOwner(c.Request.Context(), user.ID); err != nil {
			h.logger.Warn("Failed to discard drafts of deactivated user", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	h.logger.Info("User status updated", zap.String("user_id", user.ID), zap.Bool("active", user.IsActive))
	c.JSON(http.StatusOK, user)
}

// ResendInvite handles POST /api/v1/users/:id/resend-invite
// @Summary      Resend an invite
// @Tags         team
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  SuccessResponse
// @Router       /users/{id}/resend-invite [post]
func (h *DirectoryHandler) ResendInvite(c *gin.Context) {
	if err := h.directory.ResendInvite(requestContext(c), c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "invite sent"})
}
