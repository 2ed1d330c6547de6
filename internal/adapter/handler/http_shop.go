package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *HTTPHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	user, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUser(user))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a token and folds the visitor's anonymous basket into the
// account.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	tok, user, err := h.svc.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.svc.Baskets.MergeSession(ctx, actor(c).SessionID, user.ID); err != nil {
		log.Printf("http: basket merge for user %s failed: %v", user.ID, err)
	}
	h.setCookie(c, tokenCookie, tok, int(h.sessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"token": tok, "token_type": "Bearer", "user": toUser(user)})
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	h.setCookie(c, tokenCookie, "", -1)
	h.setCookie(c, sessionCookie, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user, err := h.svc.Auth.User(c.Request.Context(), actor(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(user))
}

func (h *HTTPHandler) ListTags(c *gin.Context) {
	tags, err := h.svc.Catalog.ActiveTags(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]tagJSON, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTag(t))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		badRequest(c, "invalid page")
		return
	}
	result, err := h.svc.Catalog.ListActive(c.Request.Context(), c.DefaultQuery("tag", service.TagAll), page)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{
		"page":     result.Page,
		"has_next": result.HasNext,
		"products": toProducts(result.Products),
	}
	if result.Tag != nil {
		resp["tag"] = toTag(*result.Tag)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) GetProduct(c *gin.Context) {
	p, err := h.svc.Catalog.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

func (h *HTTPHandler) writeBasket(c *gin.Context) {
	sum, err := h.svc.Baskets.Summary(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBasket(sum))
}

func (h *HTTPHandler) GetBasket(c *gin.Context) {
	h.writeBasket(c)
}

type addLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *HTTPHandler) AddBasketLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if _, err := h.svc.Baskets.AddProduct(c.Request.Context(), actor(c), req.ProductID, req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	h.writeBasket(c)
}

type updateLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *HTTPHandler) UpdateBasketLine(c *gin.Context) {
	var req updateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if _, err := h.svc.Baskets.SetQuantity(c.Request.Context(), actor(c), c.Param("id"), *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	h.writeBasket(c)
}

func (h *HTTPHandler) DeleteBasketLine(c *gin.Context) {
	if _, err := h.svc.Baskets.RemoveLine(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.writeBasket(c)
}

func (h *HTTPHandler) ListAddresses(c *gin.Context) {
	list, err := h.svc.Addresses.List(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]addressJSON, 0, len(list))
	for _, a := range list {
		out = append(out, toAddress(a))
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) CreateAddress(c *gin.Context) {
	var req addressJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	addr, err := h.svc.Addresses.Create(c.Request.Context(), actor(c), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAddress(*addr))
}

func (h *HTTPHandler) UpdateAddress(c *gin.Context) {
	var req addressJSON
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	addr, err := h.svc.Addresses.Update(c.Request.Context(), actor(c), c.Param("id"), req.input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAddress(*addr))
}

type checkoutRequest struct {
	BillingAddressID  string `json:"billing_address_id" binding:"required"`
	ShippingAddressID string `json:"shipping_address_id" binding:"required"`
}

// Checkout converts the caller's open basket into an order.
func (h *HTTPHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ctx := c.Request.Context()
	a := actor(c)
	basket, err := h.svc.Baskets.Current(ctx, a)
	if err != nil {
		writeError(c, err)
		return
	}
	if basket == nil {
		writeError(c, service.ErrBasketNotFound)
		return
	}

	order, err := h.svc.Checkout.Convert(ctx, service.ConvertInput{
		BasketID:          basket.ID,
		BillingAddressID:  req.BillingAddressID,
		ShippingAddressID: req.ShippingAddressID,
		UserID:            a.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	view, _ := domain.ProjectOwnOrder(*order, a.UserID)
	c.JSON(http.StatusCreated, view)
}

func (h *HTTPHandler) MyOrders(c *gin.Context) {
	views, err := h.svc.Orders.MyOrders(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) MyOrder(c *gin.Context) {
	view, err := h.svc.Orders.MyOrder(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *HTTPHandler) ContactUs(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.svc.Contact.Send(c.Request.Context(), req.Name, req.Message); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}
