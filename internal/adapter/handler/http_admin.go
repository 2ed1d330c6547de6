package handler

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/adapter/catalogfile"
	"github.com/rl1809/storefront/internal/adapter/imagestore"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const maxImportSize = 10 << 20

// uploadedImages serves the "images" parts of an import upload by file name.
// It returns nil when no images were sent.
func uploadedImages(c *gin.Context) service.ImageSource {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["images"]) == 0 {
		return nil
	}
	files := map[string]*multipart.FileHeader{}
	for _, fh := range form.File["images"] {
		files[filepath.Base(fh.Filename)] = fh
	}
	return func(name string) (io.ReadCloser, error) {
		fh, ok := files[filepath.Base(name)]
		if !ok {
			return nil, fmt.Errorf("%w: image %s was not uploaded", service.ErrInvalidInput, name)
		}
		return fh.Open()
	}
}

func (h *HTTPHandler) AdminListOrders(c *gin.Context) {
	views, err := h.svc.Orders.List(c.Request.Context(), actor(c), domain.OrderStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) AdminGetOrder(c *gin.Context) {
	view, err := h.svc.Orders.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *HTTPHandler) AdminSetOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view, err := h.svc.Orders.SetStatus(c.Request.Context(), actor(c), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) AdminSetLineStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view, err := h.svc.Orders.SetLineStatus(c.Request.Context(), actor(c), c.Param("id"), domain.OrderLineStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) AdminPaidOrders(c *gin.Context) {
	views, err := h.svc.Orders.PaidOrders(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) AdminPaidOrderLines(c *gin.Context) {
	views, err := h.svc.Orders.PaidOrderLines(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) AdminListProducts(c *gin.Context) {
	products, err := h.svc.Catalog.AllProducts(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProducts(products))
}

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	InStock     *bool            `json:"in_stock"`
	Active      *bool            `json:"active"`
	TagIDs      *[]string        `json:"tag_ids"`
}

func (h *HTTPHandler) AdminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Name == nil || req.Price == nil {
		badRequest(c, "name and price are required")
		return
	}
	in := service.ProductInput{Name: *req.Name, Price: *req.Price, InStock: true}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.InStock != nil {
		in.InStock = *req.InStock
	}
	if req.TagIDs != nil {
		in.TagIDs = *req.TagIDs
	}
	p, err := h.svc.Catalog.CreateProduct(c.Request.Context(), actor(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProduct(*p))
}

func (h *HTTPHandler) AdminUpdateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), actor(c), c.Param("id"), service.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		InStock:     req.InStock,
		Active:      req.Active,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProduct(*p))
}

type productStateRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Active bool     `json:"active"`
}

// AdminSetProductState is the bulk activate/deactivate action.
func (h *HTTPHandler) AdminSetProductState(c *gin.Context) {
	var req productStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	n, err := h.svc.Catalog.SetActive(c.Request.Context(), actor(c), req.IDs, req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *HTTPHandler) AdminExportProducts(c *gin.Context) {
	products, err := h.svc.Catalog.AllProducts(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := catalogfile.WriteXLSX(&buf, products); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=products.xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// AdminImportProducts accepts a CSV or XLSX upload in the "file" field and
// the pictures it names in "images" fields.
func (h *HTTPHandler) AdminImportProducts(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if header.Size > maxImportSize {
		badRequest(c, "file too large")
		return
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	var rows []domain.ProductImport
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		rows, err = catalogfile.ReadXLSX(f, header.Size)
	case ".csv":
		rows, err = catalogfile.ReadCSV(f)
	default:
		badRequest(c, "file must be .csv or .xlsx")
		return
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	stats, err := h.svc.Catalog.ImportAs(c.Request.Context(), actor(c), rows, uploadedImages(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products":         stats.Products,
		"products_created": stats.ProductsCreated,
		"tags":             stats.Tags,
		"tags_created":     stats.TagsCreated,
		"images":           stats.Images,
	})
}

// AdminAddProductImage attaches the picture in the "image" field.
func (h *HTTPHandler) AdminAddProductImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image is required")
		return
	}
	if header.Size > imagestore.MaxImageSize {
		badRequest(c, "image too large")
		return
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	img, err := h.svc.Catalog.AddImage(c.Request.Context(), actor(c), c.Param("id"), header.Filename, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toImage(*img))
}

type tagRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *HTTPHandler) AdminCreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	tag, err := h.svc.Catalog.CreateTag(c.Request.Context(), actor(c), service.TagInput{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTag(*tag))
}

func (h *HTTPHandler) AdminOrdersPerDay(c *gin.Context) {
	days, err := h.svc.Reports.OrdersPerDay(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	labels := make([]string, 0, len(days))
	values := make([]int, 0, len(days))
	for _, d := range days {
		labels = append(labels, d.Day.Format("2006-01-02"))
		values = append(values, d.Count)
	}
	c.JSON(http.StatusOK, gin.H{"labels": labels, "values": values})
}

func (h *HTTPHandler) AdminMostBought(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		badRequest(c, "invalid days")
		return
	}
	counts, err := h.svc.Reports.MostBought(c.Request.Context(), actor(c), days)
	if err != nil {
		writeError(c, err)
		return
	}
	labels := make([]string, 0, len(counts))
	values := make([]int, 0, len(counts))
	for _, p := range counts {
		labels = append(labels, p.ProductName)
		values = append(values, p.Count)
	}
	c.JSON(http.StatusOK, gin.H{"period": days, "labels": labels, "values": values})
}
