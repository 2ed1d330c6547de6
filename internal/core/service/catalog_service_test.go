package service

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func productIDs(ps []domain.Product) []string {
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.White), imaging.PNG))
	return buf.Bytes()
}

func TestListActive_NeverShowsInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "shoes", domain.CatalogStateActive)
	visible := env.product(t, "a-visible", "1.00", tag)
	hidden := env.product(t, "b-hidden", "1.00", tag)
	_, err := env.db.SetProductState(ctx, []string{hidden.ID}, domain.CatalogStateInactive)
	require.NoError(t, err)

	for _, slug := range []string{"", TagAll, "shoes"} {
		page, err := env.catalog.ListActive(ctx, slug, 1)
		require.NoError(t, err, slug)
		assert.Contains(t, productIDs(page.Products), visible.ID, slug)
		assert.NotContains(t, productIDs(page.Products), hidden.ID, slug)
	}
}

func TestListActive_InactiveTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "retired", domain.CatalogStateInactive)
	env.product(t, "a", "1.00", tag)

	_, err := env.catalog.ListActive(ctx, "retired", 1)
	assert.ErrorIs(t, err, ErrTagNotFound)
	_, err = env.catalog.ListActive(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrTagNotFound)
}

func TestListActive_Pages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.product(t, "a", "1.00")
	env.product(t, "b", "1.00")
	env.product(t, "c", "1.00")

	first, err := env.catalog.ListActive(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, first.Products, 2)
	assert.True(t, first.HasNext)

	second, err := env.catalog.ListActive(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, second.Products, 1)
	assert.False(t, second.HasNext)
}

func TestProductBySlug_HidesInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "gone", "1.00")
	_, err := env.db.SetProductState(ctx, []string{p.ID}, domain.CatalogStateInactive)
	require.NoError(t, err)

	_, err = env.catalog.ProductBySlug(ctx, "gone")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductBySlug_SameNameDifferentPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rows := []domain.ProductImport{
		{Name: "Dune", Price: decimal.RequireFromString("10.00")},
		{Name: "Dune", Price: decimal.RequireFromString("12.00")},
	}
	stats, err := env.catalog.Import(ctx, rows, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stats.ProductsCreated)

	for _, retired := range rows {
		old, err := env.db.FindProduct(ctx, retired.Name, retired.Price)
		require.NoError(t, err)
		require.NotNil(t, old)
		_, err = env.db.SetProductState(ctx, []string{old.ID}, domain.CatalogStateInactive)
		require.NoError(t, err)

		for i := 0; i < 30; i++ {
			p, err := env.catalog.ProductBySlug(ctx, "dune")
			require.NoError(t, err)
			assert.NotEqual(t, old.ID, p.ID)
			assert.True(t, p.IsActive())
		}

		_, err = env.db.SetProductState(ctx, []string{old.ID}, domain.CatalogStateActive)
		require.NoError(t, err)
	}
}

func TestImport_Images(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cover := pngImage(t, 640, 480)
	opened := 0
	images := func(name string) (io.ReadCloser, error) {
		opened++
		if name != "dune.png" {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(bytes.NewReader(cover)), nil
	}

	rows := []domain.ProductImport{
		{Name: "Dune", Price: decimal.RequireFromString("10.00"), ImageFilename: "dune.png"},
		{Name: "Emma", Price: decimal.RequireFromString("8.00")},
	}
	stats, err := env.catalog.Import(ctx, rows, images)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Images)
	assert.Equal(t, 1, opened)

	p, err := env.catalog.ProductBySlug(ctx, "dune")
	require.NoError(t, err)
	require.Len(t, p.Images, 1)
	assert.Equal(t, p.ID, p.Images[0].ProductID)
	assert.NotEmpty(t, p.Images[0].ThumbnailPath)

	rows[1].ImageFilename = "missing.png"
	_, err = env.catalog.Import(ctx, rows, images)
	assert.ErrorIs(t, err, os.ErrNotExist)
	again, err := env.catalog.ProductBySlug(ctx, "dune")
	require.NoError(t, err)
	assert.Len(t, again.Images, 1, "failed import adds no images")
}

func TestAddImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "lamp", "5.00")
	employee := env.user(t, "office@example.com", domain.GroupEmployees)
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)

	img, err := env.catalog.AddImage(ctx, Actor{UserID: employee.ID}, p.ID, "lamp.png", bytes.NewReader(pngImage(t, 50, 50)))
	require.NoError(t, err)
	assert.Equal(t, p.ID, img.ProductID)

	_, err = env.catalog.AddImage(ctx, Actor{UserID: dispatcher.ID}, p.ID, "lamp.png", bytes.NewReader(pngImage(t, 50, 50)))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.catalog.AddImage(ctx, Actor{UserID: employee.ID}, "missing", "lamp.png", bytes.NewReader(pngImage(t, 50, 50)))
	assert.ErrorIs(t, err, ErrProductNotFound)

	noImages := NewCatalogService(env.db, nil, 2)
	_, err = noImages.AddImage(ctx, Actor{UserID: employee.ID}, p.ID, "lamp.png", bytes.NewReader(pngImage(t, 50, 50)))
	assert.ErrorIs(t, err, ErrImagesDisabled)
}

func TestUpdateProduct_DispatcherOnlyStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dispatcher := env.user(t, "dispatch@example.com", domain.GroupDispatchers)
	p := env.product(t, "widget", "3.00")
	actor := Actor{UserID: dispatcher.ID}

	name := "renamed"
	_, err := env.catalog.UpdateProduct(ctx, actor, p.ID, ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	out := false
	updated, err := env.catalog.UpdateProduct(ctx, actor, p.ID, ProductUpdate{InStock: &out})
	require.NoError(t, err)
	assert.False(t, updated.InStock)
	assert.Equal(t, "widget", updated.Name)
}

func TestUpdateProduct_EmployeeEditsDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	employee := env.user(t, "office@example.com", domain.GroupEmployees)
	p := env.product(t, "widget", "3.00")

	name := "Blue Widget"
	price := decimal.RequireFromString("4.99")
	updated, err := env.catalog.UpdateProduct(ctx, Actor{UserID: employee.ID}, p.ID, ProductUpdate{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "blue-widget", updated.Slug)
	assert.True(t, updated.Price.Equal(price))

	customer := env.user(t, "alice@example.com")
	_, err = env.catalog.UpdateProduct(ctx, Actor{UserID: customer.ID}, p.ID, ProductUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.superuser(t)
	a := env.product(t, "a", "1.00")
	b := env.product(t, "b", "1.00")

	n, err := env.catalog.SetActive(ctx, Actor{UserID: owner.ID}, []string{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := env.catalog.ListActive(ctx, "", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Products)
}

func TestImport_GetOrCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rows := []domain.ProductImport{
		{Name: "Cheese Board", Description: "oak", Price: decimal.RequireFromString("12.50"), Tags: []string{"Kitchen", "Wood"}},
		{Name: "Knife", Price: decimal.RequireFromString("8.00"), Tags: []string{"Kitchen"}},
	}

	stats, err := env.catalog.Import(ctx, rows, nil)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Products: 2, ProductsCreated: 2, Tags: 3, TagsCreated: 2}, stats)

	rows[0].Description = "walnut"
	stats, err = env.catalog.Import(ctx, rows[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ProductsCreated)
	assert.Equal(t, 0, stats.TagsCreated)

	p, err := env.catalog.ProductBySlug(ctx, "cheese-board")
	require.NoError(t, err)
	assert.Equal(t, "walnut", p.Description)
	assert.Len(t, p.Tags, 2)

	page, err := env.catalog.ListActive(ctx, "kitchen", 1)
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
}
