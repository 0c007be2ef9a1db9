package pos

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/pitix_pos/models"
	"github.com/mmdatafocus/pitix_pos/possync"
	"github.com/mmdatafocus/pitix_pos/reports"
	"github.com/mmdatafocus/pitix_pos/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handlers is the REST surface the till UI talks to. Everything it needs
// is injected; there are no package globals behind these routes.
type Handlers struct {
	Service *Service
	Driver  *possync.Driver
	Monitor *possync.Monitor
	DB      *gorm.DB
	Logger  *logrus.Logger

	sessionMu sync.RWMutex
	sessions  map[string]models.User
}

func NewHandlers(service *Service, driver *possync.Driver, monitor *possync.Monitor, db *gorm.DB, logger *logrus.Logger) *Handlers {
	return &Handlers{
		Service:  service,
		Driver:   driver,
		Monitor:  monitor,
		DB:       db,
		Logger:   logger,
		sessions: make(map[string]models.User),
	}
}

func (h *Handlers) Register(r *gin.Engine) {
	r.POST("/api/login", h.login)

	api := r.Group("/api", h.sessionMiddleware())
	{
		api.POST("/logout", h.logout)

		api.GET("/products", h.listProducts)
		api.POST("/products", h.requireAdmin(), h.addProduct)
		api.PUT("/products/:id", h.updateProduct)
		api.POST("/products/:id/adjust-stock", h.requireAdmin(), h.adjustStock)
		api.POST("/products/:id/receive-stock", h.requireAdmin(), h.receiveStock)
		api.POST("/products/resolve-conflict", h.resolveConflict)

		api.GET("/sales", h.listSales)
		api.POST("/sales", h.processSale)

		api.GET("/users", h.requireAdmin(), h.listUsers)
		api.POST("/users", h.requireAdmin(), h.addUser)
		api.PUT("/users/:id", h.requireAdmin(), h.updateUser)
		api.DELETE("/users/:id", h.requireAdmin(), h.deleteUser)

		api.GET("/shifts", h.listShifts)
		api.POST("/shifts/open", h.openShift)
		api.POST("/shifts/close", h.closeShift)

		api.GET("/settings", h.getSettings)
		api.PUT("/settings", h.requireAdmin(), h.updateSettings)

		api.GET("/audit-logs", h.requireAdmin(), h.listAuditLogs)

		api.GET("/sync/status", h.syncStatus)
		api.POST("/sync/trigger", h.triggerSync)
		api.GET("/sync/dead-letters", h.requireAdmin(), h.listDeadLetters)
		api.POST("/sync/dead-letters/:key/retry", h.requireAdmin(), h.retryDeadLetter)

		api.GET("/reports/sales.xlsx", h.requireAdmin(), h.exportSales)
	}
}

// --- auth ---

type loginRequest struct {
	Pin string `json:"pin"`
}

func (h *Handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, ok := h.Service.Login(req.Pin)
	if !ok {
		h.Service.LogAction(c.Request.Context(), "LOGIN_FAILED", "PIN rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid PIN"})
		return
	}

	token := utils.NewRecordId()
	h.sessionMu.Lock()
	h.sessions[token] = *user
	h.sessionMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handlers) logout(c *gin.Context) {
	token := c.GetHeader("token")
	h.sessionMu.Lock()
	delete(h.sessions, token)
	h.sessionMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("token")
		h.sessionMu.RLock()
		user, ok := h.sessions[token]
		h.sessionMu.RUnlock()
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserNameInContext(ctx, user.Name)
		ctx = utils.SetUserRoleInContext(ctx, string(user.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *Handlers) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c.Request.Context())
		if role != string(models.UserRoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// --- products ---

func (h *Handlers) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Service.Products()})
}

func (h *Handlers) addProduct(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := h.Service.AddProduct(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (h *Handlers) updateProduct(c *gin.Context) {
	var input models.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	input.ID = c.Param("id")
	product, err := h.Service.UpdateProduct(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

type stockAdjustRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason"`
}

func (h *Handlers) adjustStock(c *gin.Context) {
	var req stockAdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := h.Service.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

type stockReceiveRequest struct {
	Quantity decimal.Decimal  `json:"quantity"`
	NewCost  *decimal.Decimal `json:"new_cost"`
}

func (h *Handlers) receiveStock(c *gin.Context) {
	var req stockReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := h.Service.ReceiveStock(c.Request.Context(), c.Param("id"), req.Quantity, req.NewCost)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

type resolveConflictRequest struct {
	Choice ConflictChoice `json:"choice"`
	Local  models.Product `json:"local"`
	Remote models.Product `json:"remote"`
}

func (h *Handlers) resolveConflict(c *gin.Context) {
	var req resolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	product, err := h.Service.ResolveProductConflict(c.Request.Context(), req.Choice, req.Local, req.Remote)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

// --- sales ---

func (h *Handlers) listSales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Service.Sales()})
}

func (h *Handlers) processSale(c *gin.Context) {
	var input models.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sale, err := h.Service.ProcessSale(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	// nudge the drainer so an online till syncs the sale right away
	h.Driver.Wake()
	c.JSON(http.StatusOK, gin.H{"data": sale})
}

// --- users ---

func (h *Handlers) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Service.Users()})
}

func (h *Handlers) addUser(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	user, err := h.Service.AddUser(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (h *Handlers) updateUser(c *gin.Context) {
	var input models.UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	input.ID = c.Param("id")
	user, err := h.Service.UpdateUser(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (h *Handlers) deleteUser(c *gin.Context) {
	if err := h.Service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- shifts ---

func (h *Handlers) listShifts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Service.Shifts()})
}

type shiftCashRequest struct {
	Cash decimal.Decimal `json:"cash"`
}

func (h *Handlers) openShift(c *gin.Context) {
	var req shiftCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	shift, err := h.Service.OpenShift(c.Request.Context(), req.Cash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": shift})
}

func (h *Handlers) closeShift(c *gin.Context) {
	var req shiftCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	shift, err := h.Service.CloseShift(c.Request.Context(), req.Cash)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": shift})
}

// --- settings / audit ---

func (h *Handlers) getSettings(c *gin.Context) {
	settings := h.Service.Settings()
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (h *Handlers) updateSettings(c *gin.Context) {
	var input models.UpdateBusinessSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	settings, err := h.Service.UpdateBusinessSettings(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (h *Handlers) listAuditLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Service.AuditLogs()})
}

// --- sync ---

func (h *Handlers) syncStatus(c *gin.Context) {
	pending, err := models.CountSyncQueue(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	dead, err := models.CountDeadLetters(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	lastDrain, stats := h.Driver.LastDrain()
	resp := gin.H{
		"online":       h.Monitor.Online(),
		"pending":      pending,
		"dead_letters": dead,
		"last_drain": gin.H{
			"pushed": stats.Pushed,
			"failed": stats.Failed,
			"dead":   stats.Dead,
		},
	}
	if !lastDrain.IsZero() {
		resp["last_drain_at"] = lastDrain.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) triggerSync(c *gin.Context) {
	h.Driver.Wake()
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (h *Handlers) listDeadLetters(c *gin.Context) {
	items, err := models.ListDeadLetters(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *Handlers) retryDeadLetter(c *gin.Context) {
	key, err := strconv.ParseUint(c.Param("key"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	if err := models.RequeueDeadLetter(h.DB, uint(key)); err != nil {
		h.respondError(c, err)
		return
	}
	h.Service.LogAction(c.Request.Context(), "RETRY_DEAD_LETTER", fmt.Sprintf("requeued dead letter %d", key))
	h.Driver.Wake()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- reports ---

func (h *Handlers) exportSales(c *gin.Context) {
	settings := h.Service.Settings()
	book, err := reports.SalesWorkbook(h.Service.Sales(), settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer book.Close()

	h.Service.LogAction(c.Request.Context(), "EXPORT_SALES", "exported sales workbook")

	filename := "sales-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := book.Write(c.Writer); err != nil {
		h.Logger.WithFields(logrus.Fields{
			"module":   "pos",
			"funcName": "exportSales",
		}).Error("write workbook: " + err.Error())
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Conflicts get
// a dedicated shape so the UI can open the resolution dialog directly.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "version conflict",
			"local":  conflict.Local,
			"remote": conflict.Remote,
		})
		return
	}
	if utils.IsValidationError(err) {
		var ve *utils.ValidationError
		errors.As(err, &ve)
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
