package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type userJSON struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Groups    []string `json:"groups"`
	Superuser bool     `json:"is_superuser"`
}

func toUser(u *domain.User) userJSON {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Groups:    groups,
		Superuser: u.IsSuperuser,
	}
}

type tagJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

func toTag(t domain.ProductTag) tagJSON {
	return tagJSON{ID: t.ID, Name: t.Name, Slug: t.Slug, Description: t.Description, Active: t.IsActive()}
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Slug        string          `json:"slug"`
	Active      bool            `json:"active"`
	InStock     bool            `json:"in_stock"`
	Tags        []tagJSON       `json:"tags"`
	Images      []imageJSON     `json:"images,omitempty"`
	UpdatedAt   time.Time       `json:"date_updated"`
}

// mediaURL is where the media root is served.
const mediaURL = "/media/"

type imageJSON struct {
	ID        string `json:"id"`
	Image     string `json:"image"`
	Thumbnail string `json:"thumbnail"`
}

func toImage(img domain.ProductImage) imageJSON {
	return imageJSON{ID: img.ID, Image: mediaURL + img.ImagePath, Thumbnail: mediaURL + img.ThumbnailPath}
}

func toProduct(p domain.Product) productJSON {
	out := productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Slug:        p.Slug,
		Active:      p.IsActive(),
		InStock:     p.InStock,
		Tags:        make([]tagJSON, 0, len(p.Tags)),
		UpdatedAt:   p.UpdatedAt,
	}
	for _, t := range p.Tags {
		out.Tags = append(out.Tags, toTag(t))
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, toImage(img))
	}
	return out
}

func toProducts(ps []domain.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProduct(p))
	}
	return out
}

type addressJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	PostalCode string `json:"zip_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

func toAddress(a domain.Address) addressJSON {
	return addressJSON{
		ID:         a.ID,
		Name:       a.Name,
		Address1:   a.Address1,
		Address2:   a.Address2,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}

func (a addressJSON) input() service.AddressInput {
	return service.AddressInput{
		Name:       a.Name,
		Address1:   a.Address1,
		Address2:   a.Address2,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}

type basketLineJSON struct {
	ID       string          `json:"id"`
	Product  productJSON     `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type basketJSON struct {
	ID     string           `json:"id,omitempty"`
	Status string           `json:"status,omitempty"`
	Lines  []basketLineJSON `json:"lines"`
	Count  int              `json:"count"`
	Total  decimal.Decimal  `json:"total"`
}

func toBasket(s *service.BasketSummary) basketJSON {
	out := basketJSON{Lines: make([]basketLineJSON, 0, len(s.Lines)), Count: s.Count, Total: s.Total}
	if s.Basket != nil {
		out.ID = s.Basket.ID
		out.Status = string(s.Basket.Status)
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, basketLineJSON{
			ID:       l.Line.ID,
			Product:  toProduct(l.Product),
			Quantity: l.Line.Quantity,
			Subtotal: l.Subtotal,
		})
	}
	return out
}
