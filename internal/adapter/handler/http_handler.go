package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rl1809/storefront/internal/adapter/imagestore"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// Services bundles the use cases the HTTP and gRPC handlers expose.
type Services struct {
	Auth      *service.AuthService
	Addresses *service.AddressService
	Catalog   *service.CatalogService
	Baskets   *service.BasketService
	Checkout  *service.CheckoutService
	Orders    *service.OrderService
	Reports   *service.ReportService
	Chat      *service.ChatService
	Contact   *service.ContactService
}

type HTTPHandler struct {
	svc        Services
	sessionTTL time.Duration
	secure     bool
	origins    []string
	mediaDir   string
	upgrader   websocket.Upgrader
}

type HTTPOptions struct {
	SessionTTL  time.Duration
	CORSOrigins []string
	// Secure marks cookies Secure; off for local development over http.
	Secure bool
	// MediaDir is served under /media when set.
	MediaDir string
}

func NewHTTPHandler(svc Services, opts HTTPOptions) *HTTPHandler {
	h := &HTTPHandler{svc: svc, sessionTTL: opts.SessionTTL, secure: opts.Secure, origins: opts.CORSOrigins, mediaDir: opts.MediaDir}
	h.upgrader = websocket.Upgrader{CheckOrigin: allowedOrigin(opts.CORSOrigins)}
	return h
}

// Router builds the gin engine with every route mounted.
func (h *HTTPHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if len(h.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     h.origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(h.session, h.authenticate)

	r.GET("/health", h.HealthCheck)
	if h.mediaDir != "" {
		r.Static(mediaURL, h.mediaDir)
	}

	api := r.Group("/api")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)
		api.GET("/me", requireAuth, h.Me)

		api.GET("/tags", h.ListTags)
		api.GET("/products", h.ListProducts)
		api.GET("/products/:slug", h.GetProduct)

		api.GET("/basket", h.GetBasket)
		api.POST("/basket/lines", h.AddBasketLine)
		api.PATCH("/basket/lines/:id", h.UpdateBasketLine)
		api.DELETE("/basket/lines/:id", h.DeleteBasketLine)

		api.GET("/addresses", requireAuth, h.ListAddresses)
		api.POST("/addresses", requireAuth, h.CreateAddress)
		api.PUT("/addresses/:id", requireAuth, h.UpdateAddress)

		api.POST("/checkout", requireAuth, h.Checkout)
		api.GET("/orders", requireAuth, h.MyOrders)
		api.GET("/orders/:id", requireAuth, h.MyOrder)

		api.POST("/contact", h.ContactUs)
	}

	admin := api.Group("/admin", requireAuth)
	{
		admin.GET("/orders", h.AdminListOrders)
		admin.GET("/orders/:id", h.AdminGetOrder)
		admin.PATCH("/orders/:id", h.AdminSetOrderStatus)
		admin.PATCH("/order-lines/:id", h.AdminSetLineStatus)
		admin.GET("/paid-orders", h.AdminPaidOrders)
		admin.GET("/paid-order-lines", h.AdminPaidOrderLines)

		admin.GET("/products", h.AdminListProducts)
		admin.POST("/products", h.AdminCreateProduct)
		admin.PATCH("/products/:id", h.AdminUpdateProduct)
		admin.POST("/products/state", h.AdminSetProductState)
		admin.GET("/products/export", h.AdminExportProducts)
		admin.POST("/products/import", h.AdminImportProducts)
		admin.POST("/products/:id/images", h.AdminAddProductImage)
		admin.POST("/tags", h.AdminCreateTag)

		admin.GET("/reports/orders-per-day", h.AdminOrdersPerDay)
		admin.GET("/reports/most-bought", h.AdminMostBought)
	}

	r.GET("/ws/orders/:id/chat", requireAuth, h.OrderChat)
	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrBasketNotFound),
		errors.Is(err, service.ErrBasketLineNotFound),
		errors.Is(err, service.ErrAddressNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrTagNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrBasketNotOpen),
		errors.Is(err, service.ErrCheckoutInProgress),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, port.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrOutOfStock):
		status, message = http.StatusGone, err.Error()
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrBasketEmpty),
		errors.Is(err, service.ErrBasketHasNoOwner),
		errors.Is(err, service.ErrAddressNotOwned),
		errors.Is(err, service.ErrNoSession),
		errors.Is(err, imagestore.ErrNotAnImage),
		errors.Is(err, imagestore.ErrImageTooLarge):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrImagesDisabled):
		status, message = http.StatusServiceUnavailable, err.Error()
	default:
		log.Printf("http: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
