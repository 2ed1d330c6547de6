package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

var errMissingReference = errors.New("referenced row does not exist")

var _ port.DatabaseRepository = (*MemoryAdapter)(nil)

// MemoryAdapter keeps the whole store in process. Transactions work on a
// copy of the state that replaces the live one on commit, so a failed
// transaction leaves nothing behind.
type MemoryAdapter struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: newMemState()}
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(tx port.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.state.clone()
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = tx
	return nil
}

func (m *MemoryAdapter) locked(fn func(s *memState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *MemoryAdapter) CreateUser(ctx context.Context, user domain.User) error {
	return m.locked(func(s *memState) error { return s.CreateUser(ctx, user) })
}

func (m *MemoryAdapter) GetUser(ctx context.Context, id string) (u *domain.User, err error) {
	err = m.locked(func(s *memState) error { u, err = s.GetUser(ctx, id); return err })
	return u, err
}

func (m *MemoryAdapter) GetUserByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	err = m.locked(func(s *memState) error { u, err = s.GetUserByEmail(ctx, email); return err })
	return u, err
}

func (m *MemoryAdapter) CreateAddress(ctx context.Context, addr domain.Address) error {
	return m.locked(func(s *memState) error { return s.CreateAddress(ctx, addr) })
}

func (m *MemoryAdapter) GetAddress(ctx context.Context, id string) (a *domain.Address, err error) {
	err = m.locked(func(s *memState) error { a, err = s.GetAddress(ctx, id); return err })
	return a, err
}

func (m *MemoryAdapter) UpdateAddress(ctx context.Context, addr domain.Address) error {
	return m.locked(func(s *memState) error { return s.UpdateAddress(ctx, addr) })
}

func (m *MemoryAdapter) ListAddresses(ctx context.Context, userID string) (out []domain.Address, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListAddresses(ctx, userID); return err })
	return out, err
}

func (m *MemoryAdapter) CreateProduct(ctx context.Context, p domain.Product) error {
	return m.locked(func(s *memState) error { return s.CreateProduct(ctx, p) })
}

func (m *MemoryAdapter) UpdateProduct(ctx context.Context, p domain.Product) error {
	return m.locked(func(s *memState) error { return s.UpdateProduct(ctx, p) })
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, id string) (p *domain.Product, err error) {
	err = m.locked(func(s *memState) error { p, err = s.GetProduct(ctx, id); return err })
	return p, err
}

func (m *MemoryAdapter) GetProductBySlug(ctx context.Context, slug string, activeOnly bool) (p *domain.Product, err error) {
	err = m.locked(func(s *memState) error { p, err = s.GetProductBySlug(ctx, slug, activeOnly); return err })
	return p, err
}

func (m *MemoryAdapter) FindProduct(ctx context.Context, name string, price decimal.Decimal) (p *domain.Product, err error) {
	err = m.locked(func(s *memState) error { p, err = s.FindProduct(ctx, name, price); return err })
	return p, err
}

func (m *MemoryAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter) (out []domain.Product, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListProducts(ctx, filter); return err })
	return out, err
}

func (m *MemoryAdapter) SetProductState(ctx context.Context, ids []string, state domain.CatalogState) (n int, err error) {
	err = m.locked(func(s *memState) error { n, err = s.SetProductState(ctx, ids, state); return err })
	return n, err
}

func (m *MemoryAdapter) SetProductTags(ctx context.Context, productID string, tagIDs []string) error {
	return m.locked(func(s *memState) error { return s.SetProductTags(ctx, productID, tagIDs) })
}

func (m *MemoryAdapter) AddProductImage(ctx context.Context, img domain.ProductImage) error {
	return m.locked(func(s *memState) error { return s.AddProductImage(ctx, img) })
}

func (m *MemoryAdapter) ListProductImages(ctx context.Context, productID string) (out []domain.ProductImage, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListProductImages(ctx, productID); return err })
	return out, err
}

func (m *MemoryAdapter) CreateTag(ctx context.Context, tag domain.ProductTag) error {
	return m.locked(func(s *memState) error { return s.CreateTag(ctx, tag) })
}

func (m *MemoryAdapter) GetTagBySlug(ctx context.Context, slug string) (t *domain.ProductTag, err error) {
	err = m.locked(func(s *memState) error { t, err = s.GetTagBySlug(ctx, slug); return err })
	return t, err
}

func (m *MemoryAdapter) GetTagByName(ctx context.Context, name string) (t *domain.ProductTag, err error) {
	err = m.locked(func(s *memState) error { t, err = s.GetTagByName(ctx, name); return err })
	return t, err
}

func (m *MemoryAdapter) ListTags(ctx context.Context, activeOnly bool) (out []domain.ProductTag, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListTags(ctx, activeOnly); return err })
	return out, err
}

func (m *MemoryAdapter) CreateBasket(ctx context.Context, b domain.Basket) error {
	return m.locked(func(s *memState) error { return s.CreateBasket(ctx, b) })
}

func (m *MemoryAdapter) GetBasket(ctx context.Context, id string) (b *domain.Basket, err error) {
	err = m.locked(func(s *memState) error { b, err = s.GetBasket(ctx, id); return err })
	return b, err
}

func (m *MemoryAdapter) FindOpenBasket(ctx context.Context, userID string) (b *domain.Basket, err error) {
	err = m.locked(func(s *memState) error { b, err = s.FindOpenBasket(ctx, userID); return err })
	return b, err
}

func (m *MemoryAdapter) AssignBasketOwner(ctx context.Context, basketID, userID string) error {
	return m.locked(func(s *memState) error { return s.AssignBasketOwner(ctx, basketID, userID) })
}

func (m *MemoryAdapter) SetBasketStatus(ctx context.Context, basketID string, from, to domain.BasketStatus) error {
	return m.locked(func(s *memState) error { return s.SetBasketStatus(ctx, basketID, from, to) })
}

func (m *MemoryAdapter) DeleteBasket(ctx context.Context, id string) error {
	return m.locked(func(s *memState) error { return s.DeleteBasket(ctx, id) })
}

func (m *MemoryAdapter) AddBasketLine(ctx context.Context, line domain.BasketLine) error {
	return m.locked(func(s *memState) error { return s.AddBasketLine(ctx, line) })
}

func (m *MemoryAdapter) UpdateBasketLine(ctx context.Context, line domain.BasketLine) error {
	return m.locked(func(s *memState) error { return s.UpdateBasketLine(ctx, line) })
}

func (m *MemoryAdapter) MoveBasketLine(ctx context.Context, lineID, basketID string) error {
	return m.locked(func(s *memState) error { return s.MoveBasketLine(ctx, lineID, basketID) })
}

func (m *MemoryAdapter) DeleteBasketLine(ctx context.Context, lineID string) error {
	return m.locked(func(s *memState) error { return s.DeleteBasketLine(ctx, lineID) })
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	return m.locked(func(s *memState) error { return s.CreateOrder(ctx, order) })
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id string) (o *domain.Order, err error) {
	err = m.locked(func(s *memState) error { o, err = s.GetOrder(ctx, id); return err })
	return o, err
}

func (m *MemoryAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) (out []domain.Order, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListOrders(ctx, filter); return err })
	return out, err
}

func (m *MemoryAdapter) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return m.locked(func(s *memState) error { return s.UpdateOrderStatus(ctx, id, status) })
}

func (m *MemoryAdapter) SetLastSpokenTo(ctx context.Context, orderID, userID string) error {
	return m.locked(func(s *memState) error { return s.SetLastSpokenTo(ctx, orderID, userID) })
}

func (m *MemoryAdapter) GetOrderLine(ctx context.Context, id string) (l *domain.OrderLine, err error) {
	err = m.locked(func(s *memState) error { l, err = s.GetOrderLine(ctx, id); return err })
	return l, err
}

func (m *MemoryAdapter) ListOrderLines(ctx context.Context, filter domain.OrderLineFilter) (out []domain.OrderLine, err error) {
	err = m.locked(func(s *memState) error { out, err = s.ListOrderLines(ctx, filter); return err })
	return out, err
}

func (m *MemoryAdapter) UpdateOrderLineStatus(ctx context.Context, id string, status domain.OrderLineStatus) error {
	return m.locked(func(s *memState) error { return s.UpdateOrderLineStatus(ctx, id, status) })
}

func (m *MemoryAdapter) OrdersPerDay(ctx context.Context, since time.Time) (out []domain.DailyCount, err error) {
	err = m.locked(func(s *memState) error { out, err = s.OrdersPerDay(ctx, since); return err })
	return out, err
}

func (m *MemoryAdapter) MostBoughtProducts(ctx context.Context, since time.Time) (out []domain.ProductCount, err error) {
	err = m.locked(func(s *memState) error { out, err = s.MostBoughtProducts(ctx, since); return err })
	return out, err
}

type memState struct {
	users       map[string]domain.User
	addresses   map[string]domain.Address
	products    map[string]domain.Product
	productTags map[string][]string
	images      map[string][]domain.ProductImage
	tags        map[string]domain.ProductTag
	baskets     map[string]domain.Basket
	basketLines map[string][]domain.BasketLine
	orders      map[string]domain.Order
	orderLines  map[string][]domain.OrderLine
}

func newMemState() *memState {
	return &memState{
		users:       map[string]domain.User{},
		addresses:   map[string]domain.Address{},
		products:    map[string]domain.Product{},
		productTags: map[string][]string{},
		images:      map[string][]domain.ProductImage{},
		tags:        map[string]domain.ProductTag{},
		baskets:     map[string]domain.Basket{},
		basketLines: map[string][]domain.BasketLine{},
		orders:      map[string]domain.Order{},
		orderLines:  map[string][]domain.OrderLine{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		v.Groups = slices.Clone(v.Groups)
		c.users[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.productTags {
		c.productTags[k] = slices.Clone(v)
	}
	for k, v := range s.images {
		c.images[k] = slices.Clone(v)
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.baskets {
		c.baskets[k] = v
	}
	for k, v := range s.basketLines {
		c.basketLines[k] = slices.Clone(v)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderLines {
		c.orderLines[k] = slices.Clone(v)
	}
	return c
}

func (s *memState) CreateUser(_ context.Context, user domain.User) error {
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("insert user: duplicate id %s", user.ID)
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("insert user: %w", port.ErrConflict)
		}
	}
	user.Groups = slices.Clone(user.Groups)
	s.users[user.ID] = user
	return nil
}

func (s *memState) GetUser(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.Groups = slices.Clone(u.Groups)
	return &u, nil
}

func (s *memState) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.Groups = slices.Clone(u.Groups)
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memState) CreateAddress(_ context.Context, addr domain.Address) error {
	if _, ok := s.users[addr.UserID]; !ok {
		return fmt.Errorf("insert address: %w", errMissingReference)
	}
	s.addresses[addr.ID] = addr
	return nil
}

func (s *memState) GetAddress(_ context.Context, id string) (*domain.Address, error) {
	a, ok := s.addresses[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *memState) UpdateAddress(_ context.Context, addr domain.Address) error {
	old, ok := s.addresses[addr.ID]
	if !ok {
		return port.ErrConflict
	}
	addr.UserID = old.UserID
	addr.CreatedAt = old.CreatedAt
	s.addresses[addr.ID] = addr
	return nil
}

func (s *memState) ListAddresses(_ context.Context, userID string) ([]domain.Address, error) {
	var out []domain.Address
	for _, a := range s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memState) CreateProduct(_ context.Context, p domain.Product) error {
	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("insert product: duplicate id %s", p.ID)
	}
	p.Tags = nil
	s.products[p.ID] = p
	return nil
}

func (s *memState) UpdateProduct(_ context.Context, p domain.Product) error {
	if _, ok := s.products[p.ID]; !ok {
		return port.ErrConflict
	}
	p.Tags = nil
	s.products[p.ID] = p
	return nil
}

func (s *memState) withTags(p domain.Product) domain.Product {
	p.Tags = nil
	for _, id := range s.productTags[p.ID] {
		if t, ok := s.tags[id]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	sort.Slice(p.Tags, func(i, j int) bool { return p.Tags[i].Name < p.Tags[j].Name })
	return p
}

func (s *memState) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	p = s.withTags(p)
	return &p, nil
}

func (s *memState) GetProductBySlug(_ context.Context, slug string, activeOnly bool) (*domain.Product, error) {
	var found *domain.Product
	for _, p := range s.products {
		p := p // per-iteration copy: go directive lowered to 1.21 (pre-1.22 loopvar semantics)
		if p.Slug != slug || (activeOnly && !p.IsActive()) {
			continue
		}
		if found == nil || p.ID < found.ID {
			found = &p
		}
	}
	if found == nil {
		return nil, nil
	}
	p := s.withTags(*found)
	return &p, nil
}

func (s *memState) FindProduct(_ context.Context, name string, price decimal.Decimal) (*domain.Product, error) {
	for _, p := range s.products {
		if p.Name == name && p.Price.Equal(price) {
			p = s.withTags(p)
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memState) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.products {
		if filter.ActiveOnly && !p.IsActive() {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		p = s.withTags(p)
		if filter.TagSlug != "" && !slices.ContainsFunc(p.Tags, func(t domain.ProductTag) bool { return t.Slug == filter.TagSlug }) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *memState) SetProductState(_ context.Context, ids []string, state domain.CatalogState) (int, error) {
	n := 0
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok {
			continue
		}
		if p.State != state {
			p.State = state
			p.UpdatedAt = time.Now()
			s.products[id] = p
			n++
		}
	}
	return n, nil
}

func (s *memState) SetProductTags(_ context.Context, productID string, tagIDs []string) error {
	if _, ok := s.products[productID]; !ok {
		return fmt.Errorf("set product tags: %w", errMissingReference)
	}
	for _, id := range tagIDs {
		if _, ok := s.tags[id]; !ok {
			return fmt.Errorf("set product tags: %w", errMissingReference)
		}
	}
	ids := slices.Clone(tagIDs)
	slices.Sort(ids)
	s.productTags[productID] = slices.Compact(ids)
	return nil
}

func (s *memState) AddProductImage(_ context.Context, img domain.ProductImage) error {
	if _, ok := s.products[img.ProductID]; !ok {
		return fmt.Errorf("insert product image: %w", errMissingReference)
	}
	s.images[img.ProductID] = append(s.images[img.ProductID], img)
	return nil
}

func (s *memState) ListProductImages(_ context.Context, productID string) ([]domain.ProductImage, error) {
	return slices.Clone(s.images[productID]), nil
}

func (s *memState) CreateTag(_ context.Context, tag domain.ProductTag) error {
	if _, ok := s.tags[tag.ID]; ok {
		return fmt.Errorf("insert tag: duplicate id %s", tag.ID)
	}
	s.tags[tag.ID] = tag
	return nil
}

func (s *memState) GetTagBySlug(_ context.Context, slug string) (*domain.ProductTag, error) {
	for _, t := range s.tags {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memState) GetTagByName(_ context.Context, name string) (*domain.ProductTag, error) {
	for _, t := range s.tags {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memState) ListTags(_ context.Context, activeOnly bool) ([]domain.ProductTag, error) {
	var out []domain.ProductTag
	for _, t := range s.tags {
		if activeOnly && !t.IsActive() {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memState) CreateBasket(_ context.Context, b domain.Basket) error {
	if _, ok := s.baskets[b.ID]; ok {
		return fmt.Errorf("insert basket: duplicate id %s", b.ID)
	}
	b.Lines = nil
	s.baskets[b.ID] = b
	return nil
}

func (s *memState) GetBasket(_ context.Context, id string) (*domain.Basket, error) {
	b, ok := s.baskets[id]
	if !ok {
		return nil, nil
	}
	b.Lines = slices.Clone(s.basketLines[id])
	return &b, nil
}

func (s *memState) FindOpenBasket(ctx context.Context, userID string) (*domain.Basket, error) {
	var found *domain.Basket
	for _, b := range s.baskets {
		if b.UserID != userID || !b.IsOpen() {
			continue
		}
		if found == nil || b.CreatedAt.Before(found.CreatedAt) {
			b := b
			found = &b
		}
	}
	if found == nil {
		return nil, nil
	}
	return s.GetBasket(ctx, found.ID)
}

func (s *memState) AssignBasketOwner(_ context.Context, basketID, userID string) error {
	b, ok := s.baskets[basketID]
	if !ok || !b.IsAnonymous() || !b.IsOpen() {
		return port.ErrConflict
	}
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("assign basket owner: %w", errMissingReference)
	}
	b.UserID = userID
	b.UpdatedAt = time.Now()
	s.baskets[basketID] = b
	return nil
}

func (s *memState) SetBasketStatus(_ context.Context, basketID string, from, to domain.BasketStatus) error {
	b, ok := s.baskets[basketID]
	if !ok || b.Status != from {
		return port.ErrConflict
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	s.baskets[basketID] = b
	return nil
}

func (s *memState) DeleteBasket(_ context.Context, id string) error {
	delete(s.baskets, id)
	delete(s.basketLines, id)
	return nil
}

func (s *memState) findBasketLine(lineID string) (string, int) {
	for basketID, lines := range s.basketLines {
		for i, l := range lines {
			if l.ID == lineID {
				return basketID, i
			}
		}
	}
	return "", -1
}

func (s *memState) AddBasketLine(_ context.Context, line domain.BasketLine) error {
	if _, ok := s.baskets[line.BasketID]; !ok {
		return fmt.Errorf("insert basket line: %w", errMissingReference)
	}
	if _, ok := s.products[line.ProductID]; !ok {
		return fmt.Errorf("insert basket line: %w", errMissingReference)
	}
	if line.Quantity < 1 {
		return fmt.Errorf("insert basket line: quantity %d below 1", line.Quantity)
	}
	s.basketLines[line.BasketID] = append(s.basketLines[line.BasketID], line)
	return nil
}

func (s *memState) UpdateBasketLine(_ context.Context, line domain.BasketLine) error {
	basketID, i := s.findBasketLine(line.ID)
	if i < 0 {
		return port.ErrConflict
	}
	if line.Quantity < 1 {
		return fmt.Errorf("update basket line: quantity %d below 1", line.Quantity)
	}
	s.basketLines[basketID][i].Quantity = line.Quantity
	return nil
}

func (s *memState) MoveBasketLine(_ context.Context, lineID, basketID string) error {
	if _, ok := s.baskets[basketID]; !ok {
		return fmt.Errorf("move basket line: %w", errMissingReference)
	}
	from, i := s.findBasketLine(lineID)
	if i < 0 {
		return port.ErrConflict
	}
	line := s.basketLines[from][i]
	s.basketLines[from] = slices.Delete(s.basketLines[from], i, i+1)
	line.BasketID = basketID
	s.basketLines[basketID] = append(s.basketLines[basketID], line)
	return nil
}

func (s *memState) DeleteBasketLine(_ context.Context, lineID string) error {
	basketID, i := s.findBasketLine(lineID)
	if i < 0 {
		return nil
	}
	s.basketLines[basketID] = slices.Delete(s.basketLines[basketID], i, i+1)
	return nil
}

func (s *memState) CreateOrder(_ context.Context, order domain.Order) error {
	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("insert order: duplicate id %s", order.ID)
	}
	if _, ok := s.users[order.UserID]; !ok {
		return fmt.Errorf("insert order: %w", errMissingReference)
	}
	for _, l := range order.Lines {
		if _, ok := s.products[l.ProductID]; !ok {
			return fmt.Errorf("insert order line: %w", errMissingReference)
		}
	}
	lines := slices.Clone(order.Lines)
	order.Lines = nil
	s.orders[order.ID] = order
	s.orderLines[order.ID] = lines
	return nil
}

func (s *memState) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Lines = slices.Clone(s.orderLines[id])
	return &o, nil
}

func (s *memState) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && !o.CreatedAt.After(filter.Since) {
			continue
		}
		o.Lines = slices.Clone(s.orderLines[o.ID])
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Limit, 0), nil
}

func (s *memState) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) error {
	o, ok := s.orders[id]
	if !ok {
		return port.ErrConflict
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

func (s *memState) SetLastSpokenTo(_ context.Context, orderID, userID string) error {
	o, ok := s.orders[orderID]
	if !ok {
		return port.ErrConflict
	}
	o.LastSpokenTo = userID
	s.orders[orderID] = o
	return nil
}

func (s *memState) findOrderLine(id string) (string, int) {
	for orderID, lines := range s.orderLines {
		for i, l := range lines {
			if l.ID == id {
				return orderID, i
			}
		}
	}
	return "", -1
}

func (s *memState) GetOrderLine(_ context.Context, id string) (*domain.OrderLine, error) {
	orderID, i := s.findOrderLine(id)
	if i < 0 {
		return nil, nil
	}
	l := s.orderLines[orderID][i]
	return &l, nil
}

func (s *memState) ListOrderLines(_ context.Context, filter domain.OrderLineFilter) ([]domain.OrderLine, error) {
	var orders []domain.Order
	for _, o := range s.orders {
		if filter.OrderID != "" && o.ID != filter.OrderID {
			continue
		}
		if filter.OrderStatus != "" && o.Status != filter.OrderStatus {
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	var out []domain.OrderLine
	for _, o := range orders {
		for _, l := range s.orderLines[o.ID] {
			if filter.Status != "" && l.Status != filter.Status {
				continue
			}
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memState) UpdateOrderLineStatus(_ context.Context, id string, status domain.OrderLineStatus) error {
	orderID, i := s.findOrderLine(id)
	if i < 0 {
		return port.ErrConflict
	}
	s.orderLines[orderID][i].Status = status
	return nil
}

func (s *memState) OrdersPerDay(_ context.Context, since time.Time) ([]domain.DailyCount, error) {
	counts := map[time.Time]int{}
	for _, o := range s.orders {
		if !o.CreatedAt.After(since) {
			continue
		}
		t := o.CreatedAt.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		counts[day]++
	}
	out := make([]domain.DailyCount, 0, len(counts))
	for day, c := range counts {
		out = append(out, domain.DailyCount{Day: day, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *memState) MostBoughtProducts(_ context.Context, since time.Time) ([]domain.ProductCount, error) {
	counts := map[string]int{}
	for _, o := range s.orders {
		if !o.CreatedAt.After(since) {
			continue
		}
		for _, l := range s.orderLines[o.ID] {
			counts[s.products[l.ProductID].Name]++
		}
	}
	out := make([]domain.ProductCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, domain.ProductCount{ProductName: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}
