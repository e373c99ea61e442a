package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avatarctic/commerce-gateway/internal/core/domain/cart"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/catalog"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/failure"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/operation"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/order"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/profile"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/resource"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/vendor"
	"github.com/avatarctic/commerce-gateway/internal/core/ports"
)

const defaultPageLimit = 20

// Backend is an in-process system of record for local runs and tests.
// Writes carrying an idempotency key are applied once; repeats return the first result.
type Backend struct {
	mu         sync.RWMutex
	products   map[int64]*catalog.Product
	categories map[int64]*catalog.Category
	attributes map[int64]*catalog.Attribute
	values     map[int64]*catalog.AttributeValue
	vendors    map[int64]*vendor.Vendor
	carts      map[string]*cart.Cart
	orders     map[int64]*order.Order
	profiles   map[string]*profile.Profile
	applied    map[string]any
	nextID     int64
	now        func() time.Time

	reads  atomic.Int64
	writes atomic.Int64
}

var _ ports.BackendClient = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		products:   make(map[int64]*catalog.Product),
		categories: make(map[int64]*catalog.Category),
		attributes: make(map[int64]*catalog.Attribute),
		values:     make(map[int64]*catalog.AttributeValue),
		vendors:    make(map[int64]*vendor.Vendor),
		carts:      make(map[string]*cart.Cart),
		orders:     make(map[int64]*order.Order),
		profiles:   make(map[string]*profile.Profile),
		applied:    make(map[string]any),
		now:        time.Now,
	}
}

// Reads and Writes count the calls received.
func (b *Backend) Reads() int64  { return b.reads.Load() }
func (b *Backend) Writes() int64 { return b.writes.Load() }

// Ping always succeeds.
func (b *Backend) Ping(ctx context.Context) error { return nil }

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// AddVendor, AddCategory, AddAttribute, AddAttributeValue and AddProduct seed data and
// return the stored copy.
func (b *Backend) AddVendor(v vendor.Vendor) vendor.Vendor {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v.ID == 0 {
		v.ID = b.id()
	}
	b.bump(v.ID)
	b.vendors[v.ID] = &v
	return v
}

func (b *Backend) AddCategory(c catalog.Category) catalog.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == 0 {
		c.ID = b.id()
	}
	b.bump(c.ID)
	b.categories[c.ID] = &c
	return c
}

func (b *Backend) AddAttribute(a catalog.Attribute) catalog.Attribute {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a.ID == 0 {
		a.ID = b.id()
	}
	b.bump(a.ID)
	b.attributes[a.ID] = &a
	return a
}

func (b *Backend) AddAttributeValue(v catalog.AttributeValue) catalog.AttributeValue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v.ID == 0 {
		v.ID = b.id()
	}
	b.bump(v.ID)
	b.values[v.ID] = &v
	return v
}

// AddProduct also numbers the product's variants.
func (b *Backend) AddProduct(p catalog.Product) catalog.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == 0 {
		p.ID = b.id()
	}
	b.bump(p.ID)
	p.Variants = append([]catalog.Variant(nil), p.Variants...)
	for i := range p.Variants {
		if p.Variants[i].ID == 0 {
			p.Variants[i].ID = b.id()
		}
		b.bump(p.Variants[i].ID)
		p.Variants[i].ProductID = p.ID
	}
	b.products[p.ID] = &p
	return cloneProduct(&p)
}

func (b *Backend) bump(id int64) {
	if id > b.nextID {
		b.nextID = id
	}
}

func (b *Backend) Read(ctx context.Context, req ports.BackendRequest, out any) error {
	b.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return failure.Timeout("backend read", err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch req.Resource {
	case resource.Catalog:
		switch req.Action {
		case "search":
			return assign(out, b.search(req.Params))
		case "products":
			id, err := parseID(req.ID)
			if err != nil {
				return err
			}
			if _, ok := b.categories[id]; !ok {
				return failure.NotFound("category not found")
			}
			params := resource.Params{"category": req.ID, "skip": req.Params.Get("skip"), "limit": req.Params.Get("limit")}
			return assign(out, b.search(params))
		}
	case resource.Product:
		if req.Action == "get" {
			p, err := b.product(req.ID)
			if err != nil {
				return err
			}
			return assign(out, cloneProduct(p))
		}
	case resource.Category:
		switch req.Action {
		case "list":
			vendorID, _ := strconv.ParseInt(req.Params.Get("vendor"), 10, 64)
			parentID, _ := strconv.ParseInt(req.Params.Get("parent"), 10, 64)
			all := make([]catalog.Category, 0, len(b.categories))
			for _, c := range b.categories {
				if vendorID != 0 && c.VendorID != vendorID {
					continue
				}
				if parentID != 0 && (c.ParentID == nil || *c.ParentID != parentID) {
					continue
				}
				all = append(all, cloneCategory(c))
			}
			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			return assign(out, page(all, req.Params))
		case "get":
			id, err := parseID(req.ID)
			if err != nil {
				return err
			}
			c, ok := b.categories[id]
			if !ok {
				return failure.NotFound("category not found")
			}
			return assign(out, cloneCategory(c))
		}
	case resource.Variant:
		switch req.Action {
		case "list":
			productID, _ := strconv.ParseInt(req.Params.Get("product"), 10, 64)
			var all []catalog.Variant
			for _, p := range b.products {
				if productID != 0 && p.ID != productID {
					continue
				}
				for _, v := range p.Variants {
					all = append(all, cloneVariant(v))
				}
			}
			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			return assign(out, page(all, req.Params))
		case "get":
			p, i, err := b.variant(req.ID)
			if err != nil {
				return err
			}
			return assign(out, cloneVariant(p.Variants[i]))
		}
	case resource.Attribute:
		switch req.Action {
		case "list":
			all := make([]catalog.Attribute, 0, len(b.attributes))
			for _, a := range b.attributes {
				all = append(all, *a)
			}
			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			return assign(out, page(all, req.Params))
		case "get":
			a, err := b.attribute(req.ID)
			if err != nil {
				return err
			}
			return assign(out, *a)
		case "values":
			a, err := b.attribute(req.Params.Get("attribute"))
			if err != nil {
				return err
			}
			return assign(out, page(b.valuesOf(a.ID), req.Params))
		}
	case resource.Vendor:
		switch req.Action {
		case "list":
			all := make([]vendor.Vendor, 0, len(b.vendors))
			for _, v := range b.vendors {
				all = append(all, *v)
			}
			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			return assign(out, page(all, req.Params))
		case "get":
			id, err := parseID(req.ID)
			if err != nil {
				return err
			}
			v, ok := b.vendors[id]
			if !ok {
				return failure.NotFound("vendor not found")
			}
			return assign(out, *v)
		}
	case resource.Cart:
		if req.Action == "get" {
			return assign(out, b.cartView(req.Subject))
		}
	case resource.Order:
		switch req.Action {
		case "list":
			var mine []order.Order
			for _, o := range b.orders {
				if o.UserID == req.Subject {
					mine = append(mine, cloneOrder(o))
				}
			}
			sort.Slice(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })
			return assign(out, page(mine, req.Params))
		case "get":
			o, err := b.order(req.Subject, req.ID)
			if err != nil {
				return err
			}
			return assign(out, cloneOrder(o))
		case "status":
			o, err := b.order(req.Subject, req.ID)
			if err != nil {
				return err
			}
			return assign(out, order.StatusView{ID: o.ID, Name: o.Name, State: o.State})
		}
	case resource.User:
		if req.Action == "get" {
			p, ok := b.profiles[req.Subject]
			if !ok {
				return assign(out, profile.Profile{ID: req.Subject, IsActive: true})
			}
			return assign(out, *p)
		}
	}
	return unsupported(req)
}

func (b *Backend) Write(ctx context.Context, req ports.BackendRequest, out any) error {
	b.writes.Add(1)
	if err := ctx.Err(); err != nil {
		return failure.Timeout("backend write", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idem := ""
	if req.IdempotencyKey != "" {
		idem = fmt.Sprintf("%s|%s|%s|%s|%s", req.Resource, req.Action, req.Subject, req.ID, req.IdempotencyKey)
		if prev, ok := b.applied[idem]; ok {
			return assignAny(out, prev)
		}
	}
	v, err := b.apply(req)
	if err != nil {
		return err
	}
	if idem != "" {
		b.applied[idem] = v
	}
	return assignAny(out, v)
}

func (b *Backend) apply(req ports.BackendRequest) (any, error) {
	switch req.Resource {
	case resource.Product:
		return b.applyProduct(req)
	case resource.Category:
		return b.applyCategory(req)
	case resource.Variant:
		return b.applyVariant(req)
	case resource.Attribute:
		return b.applyAttribute(req)
	case resource.Catalog:
		if req.Action == "sync" {
			return catalog.SyncReport{Products: len(b.products), Categories: len(b.categories)}, nil
		}
	case resource.Vendor:
		return b.applyVendor(req)
	case resource.Cart:
		return b.applyCart(req)
	case resource.Order:
		return b.applyOrder(req)
	case resource.User:
		if req.Action == "update" {
			body, ok := req.Body.(*profile.UpdateRequest)
			if !ok {
				return nil, badBody(req)
			}
			p, ok := b.profiles[req.Subject]
			if !ok {
				p = &profile.Profile{ID: req.Subject, IsActive: true}
				b.profiles[req.Subject] = p
			}
			body.Apply(p)
			return *p, nil
		}
	}
	return nil, unsupported(req)
}

func (b *Backend) applyProduct(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create", "update":
		body, ok := req.Body.(*catalog.ProductInput)
		if !ok {
			return nil, badBody(req)
		}
		if _, ok := b.vendors[body.VendorID]; !ok {
			return nil, failure.Rejected(failure.CodeInvalid, "unknown vendor")
		}
		for _, cid := range body.CategoryIDs {
			if _, ok := b.categories[cid]; !ok {
				return nil, failure.Rejected(failure.CodeInvalid, fmt.Sprintf("unknown category %d", cid))
			}
		}
		var p *catalog.Product
		if req.Action == "create" {
			p = &catalog.Product{ID: b.id(), IsActive: true}
			b.products[p.ID] = p
		} else {
			existing, err := b.product(req.ID)
			if err != nil {
				return nil, err
			}
			p = existing
		}
		p.Name, p.Description, p.ListPrice = body.Name, body.Description, body.ListPrice
		p.VendorID, p.CategoryIDs = body.VendorID, append([]int64(nil), body.CategoryIDs...)
		p.ImageURL, p.Tags, p.Barcode = body.ImageURL, body.Tags, body.Barcode
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}
		return cloneProduct(p), nil
	case "delete":
		p, err := b.product(req.ID)
		if err != nil {
			return nil, err
		}
		delete(b.products, p.ID)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	}
	return nil, unsupported(req)
}

func (b *Backend) applyCategory(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create", "update":
		body, ok := req.Body.(*catalog.CategoryInput)
		if !ok {
			return nil, badBody(req)
		}
		if _, ok := b.vendors[body.VendorID]; !ok {
			return nil, failure.Rejected(failure.CodeInvalid, "unknown vendor")
		}
		var c *catalog.Category
		if req.Action == "create" {
			c = &catalog.Category{ID: b.id()}
		} else {
			existing, err := b.category(req.ID)
			if err != nil {
				return nil, err
			}
			c = existing
		}
		if body.ParentID != nil {
			if *body.ParentID == c.ID {
				return nil, failure.Rejected(failure.CodeInvalid, "category cannot be its own parent")
			}
			if _, ok := b.categories[*body.ParentID]; !ok {
				return nil, failure.Rejected(failure.CodeInvalid, fmt.Sprintf("unknown parent category %d", *body.ParentID))
			}
		}
		c.Name, c.Description, c.VendorID = body.Name, body.Description, body.VendorID
		c.ParentID = nil
		if body.ParentID != nil {
			parent := *body.ParentID
			c.ParentID = &parent
		}
		b.categories[c.ID] = c
		return cloneCategory(c), nil
	case "delete":
		c, err := b.category(req.ID)
		if err != nil {
			return nil, err
		}
		for _, child := range b.categories {
			if child.ParentID != nil && *child.ParentID == c.ID {
				return nil, failure.Rejected(failure.CodeConflict, "category still has subcategories")
			}
		}
		for _, p := range b.products {
			for _, cid := range p.CategoryIDs {
				if cid == c.ID {
					return nil, failure.Rejected(failure.CodeConflict, "category still has products")
				}
			}
		}
		delete(b.categories, c.ID)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	}
	return nil, unsupported(req)
}

func (b *Backend) applyVariant(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create", "update":
		body, ok := req.Body.(*catalog.VariantInput)
		if !ok {
			return nil, badBody(req)
		}
		p, ok := b.products[body.ProductID]
		if !ok {
			return nil, failure.Rejected(failure.CodeInvalid, "unknown product")
		}
		values := make([]catalog.AttributeValue, 0, len(body.AttributeValueIDs))
		for _, vid := range body.AttributeValueIDs {
			v, ok := b.values[vid]
			if !ok {
				return nil, failure.Rejected(failure.CodeInvalid, fmt.Sprintf("unknown attribute value %d", vid))
			}
			values = append(values, *v)
		}
		v := catalog.Variant{ProductID: p.ID, SKU: body.SKU, Price: body.Price, StockQuantity: body.StockQuantity, AttributeValues: values}
		if req.Action == "create" {
			v.ID = b.id()
			p.Variants = append(p.Variants, v)
			return cloneVariant(v), nil
		}
		owner, i, err := b.variant(req.ID)
		if err != nil {
			return nil, err
		}
		if owner.ID != p.ID {
			return nil, failure.Rejected(failure.CodeInvalid, "variant cannot move to another product")
		}
		v.ID = owner.Variants[i].ID
		owner.Variants[i] = v
		return cloneVariant(v), nil
	case "delete":
		owner, i, err := b.variant(req.ID)
		if err != nil {
			return nil, err
		}
		owner.Variants = append(owner.Variants[:i], owner.Variants[i+1:]...)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	}
	return nil, unsupported(req)
}

func (b *Backend) applyAttribute(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create", "update":
		body, ok := req.Body.(*catalog.AttributeInput)
		if !ok {
			return nil, badBody(req)
		}
		var a *catalog.Attribute
		if req.Action == "create" {
			a = &catalog.Attribute{ID: b.id()}
			b.attributes[a.ID] = a
		} else {
			existing, err := b.attribute(req.ID)
			if err != nil {
				return nil, err
			}
			a = existing
		}
		a.Name, a.DisplayName, a.AttributeType, a.Description = body.Name, body.DisplayName, body.AttributeType, body.Description
		return *a, nil
	case "delete":
		a, err := b.attribute(req.ID)
		if err != nil {
			return nil, err
		}
		for id, v := range b.values {
			if v.AttributeID == a.ID {
				delete(b.values, id)
				b.dropFromVariants(id)
			}
		}
		delete(b.attributes, a.ID)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	case "create_value", "update_value":
		body, ok := req.Body.(*catalog.AttributeValueInput)
		if !ok {
			return nil, badBody(req)
		}
		a, err := b.attribute(req.Params.Get("attribute"))
		if err != nil {
			return nil, err
		}
		var v *catalog.AttributeValue
		if req.Action == "create_value" {
			v = &catalog.AttributeValue{ID: b.id(), AttributeID: a.ID}
			b.values[v.ID] = v
		} else {
			if v, err = b.value(a.ID, req.ID); err != nil {
				return nil, err
			}
		}
		v.Value, v.DisplayValue, v.Sequence = body.Value, body.DisplayValue, body.Sequence
		if v.DisplayValue == "" {
			v.DisplayValue = v.Value
		}
		b.refreshVariants(*v)
		return *v, nil
	case "delete_value":
		a, err := b.attribute(req.Params.Get("attribute"))
		if err != nil {
			return nil, err
		}
		v, err := b.value(a.ID, req.ID)
		if err != nil {
			return nil, err
		}
		delete(b.values, v.ID)
		b.dropFromVariants(v.ID)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	}
	return nil, unsupported(req)
}

// refreshVariants rewrites the copies of v embedded in variants.
func (b *Backend) refreshVariants(v catalog.AttributeValue) {
	for _, p := range b.products {
		for i := range p.Variants {
			for j := range p.Variants[i].AttributeValues {
				if p.Variants[i].AttributeValues[j].ID == v.ID {
					p.Variants[i].AttributeValues[j] = v
				}
			}
		}
	}
}

func (b *Backend) dropFromVariants(valueID int64) {
	for _, p := range b.products {
		for i := range p.Variants {
			kept := p.Variants[i].AttributeValues[:0]
			for _, av := range p.Variants[i].AttributeValues {
				if av.ID != valueID {
					kept = append(kept, av)
				}
			}
			p.Variants[i].AttributeValues = kept
		}
	}
}

func (b *Backend) valuesOf(attributeID int64) []catalog.AttributeValue {
	var out []catalog.AttributeValue
	for _, v := range b.values {
		if v.AttributeID == attributeID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (b *Backend) applyVendor(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create":
		body, ok := req.Body.(*vendor.Input)
		if !ok {
			return nil, badBody(req)
		}
		if body.Name == nil || *body.Name == "" {
			return nil, failure.Rejected(failure.CodeInvalid, "vendor name is required")
		}
		v := &vendor.Vendor{ID: b.id(), IsActive: true}
		body.Apply(v)
		b.vendors[v.ID] = v
		return *v, nil
	case "update":
		body, ok := req.Body.(*vendor.Input)
		if !ok {
			return nil, badBody(req)
		}
		v, err := b.vendor(req.ID)
		if err != nil {
			return nil, err
		}
		body.Apply(v)
		return *v, nil
	case "delete":
		v, err := b.vendor(req.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range b.products {
			if p.VendorID == v.ID {
				return nil, failure.Rejected(failure.CodeConflict, "vendor still has products")
			}
		}
		delete(b.vendors, v.ID)
		return operation.Ack{ID: req.ID, Status: "deleted"}, nil
	}
	return nil, unsupported(req)
}

func (b *Backend) applyCart(req ports.BackendRequest) (any, error) {
	c := b.carts[req.Subject]
	if c == nil {
		c = &cart.Cart{UserID: req.Subject}
		b.carts[req.Subject] = c
	}
	switch req.Action {
	case "add_item":
		body, ok := req.Body.(*cart.AddItemRequest)
		if !ok {
			return nil, badBody(req)
		}
		p, ok := b.products[body.ProductID]
		if !ok || !p.IsActive {
			return nil, failure.NotFound("product not found")
		}
		merged := false
		for i := range c.Items {
			if c.Items[i].ProductID == body.ProductID {
				c.Items[i].Quantity += body.Quantity
				merged = true
				break
			}
		}
		if !merged {
			c.Items = append(c.Items, cart.Item{ID: b.id(), ProductID: p.ID, Quantity: body.Quantity, PriceUnit: p.ListPrice})
		}
	case "update_item":
		body, ok := req.Body.(*cart.UpdateItemRequest)
		if !ok {
			return nil, badBody(req)
		}
		i, err := itemIndex(c, req.ID)
		if err != nil {
			return nil, err
		}
		c.Items[i].Quantity = body.Quantity
	case "remove_item":
		i, err := itemIndex(c, req.ID)
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	case "clear":
		c.Items = nil
	default:
		return nil, unsupported(req)
	}
	c.Recalculate()
	c.UpdatedAt = b.now()
	return b.cartView(req.Subject), nil
}

func (b *Backend) applyOrder(req ports.BackendRequest) (any, error) {
	switch req.Action {
	case "create":
		body, ok := req.Body.(*order.CreateRequest)
		if !ok {
			return nil, badBody(req)
		}
		now := b.now()
		o := &order.Order{ID: b.id(), UserID: req.Subject, State: order.StatusDraft, OrderDate: now}
		o.Name = order.DisplayName(o.ID, now)
		if err := b.fillOrder(o, body); err != nil {
			return nil, err
		}
		b.orders[o.ID] = o
		// Placing an order consumes the cart.
		if c := b.carts[req.Subject]; c != nil {
			c.Items = nil
			c.Recalculate()
			c.UpdatedAt = now
		}
		return cloneOrder(o), nil
	case "update":
		body, ok := req.Body.(*order.CreateRequest)
		if !ok {
			return nil, badBody(req)
		}
		o, err := b.order(req.Subject, req.ID)
		if err != nil {
			return nil, err
		}
		if o.State != order.StatusDraft {
			return nil, failure.Rejected(failure.CodeConflict, "only draft orders can be updated")
		}
		if err := b.fillOrder(o, body); err != nil {
			return nil, err
		}
		return cloneOrder(o), nil
	case "confirm":
		o, err := b.order(req.Subject, req.ID)
		if err != nil {
			return nil, err
		}
		if o.State != order.StatusDraft && o.State != order.StatusPending {
			return nil, failure.Rejected(failure.CodeConflict, fmt.Sprintf("cannot confirm %s order", o.State))
		}
		o.State = order.StatusConfirmed
		return cloneOrder(o), nil
	case "cancel":
		o, err := b.order(req.Subject, req.ID)
		if err != nil {
			return nil, err
		}
		switch o.State {
		case order.StatusShipped, order.StatusDelivered, order.StatusCancelled:
			return nil, failure.Rejected(failure.CodeConflict, fmt.Sprintf("cannot cancel %s order", o.State))
		}
		o.State = order.StatusCancelled
		return cloneOrder(o), nil
	}
	return nil, unsupported(req)
}

func (b *Backend) fillOrder(o *order.Order, body *order.CreateRequest) error {
	lines := make([]order.Line, 0, len(body.Lines))
	for _, in := range body.Lines {
		if _, ok := b.products[in.ProductID]; !ok {
			return failure.Rejected(failure.CodeInvalid, fmt.Sprintf("unknown product %d", in.ProductID))
		}
		lines = append(lines, order.Line{ID: b.id(), ProductID: in.ProductID, Quantity: in.Quantity, PriceUnit: in.PriceUnit, Subtotal: in.Quantity * in.PriceUnit})
	}
	o.Lines = lines
	o.ShippingAddress = body.ShippingAddress
	o.PaymentMethod = body.PaymentMethod
	o.TotalPrice = body.Total()
	return nil
}

func (b *Backend) search(params resource.Params) catalog.ProductPage {
	var (
		catID, _    = strconv.ParseInt(params.Get("category"), 10, 64)
		catName     = strings.ToLower(params.Get("category"))
		vendorID, _ = strconv.ParseInt(params.Get("vendor"), 10, 64)
		text        = strings.ToLower(params.Get("search"))
		tags        = splitTags(params.Get("tags"))
	)
	minPrice, hasMin := parseFloat(params.Get("min_price"))
	maxPrice, hasMax := parseFloat(params.Get("max_price"))
	hasVariants, filterVariants := parseBool(params.Get("has_variants"))

	var hits []catalog.Product
	for _, p := range b.products {
		if !p.IsActive {
			continue
		}
		if catName != "" && !b.inCategory(p, catID, catName) {
			continue
		}
		if vendorID != 0 && p.VendorID != vendorID {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) && !strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}
		if hasMin && p.ListPrice < minPrice {
			continue
		}
		if hasMax && p.ListPrice > maxPrice {
			continue
		}
		if filterVariants && (len(p.Variants) > 0) != hasVariants {
			continue
		}
		if len(tags) > 0 && !anyTag(splitTags(p.Tags), tags) {
			continue
		}
		hits = append(hits, cloneProduct(p))
	}
	sortProducts(hits, params.Get("sort"))

	items := page(hits, params)
	skip, limit := pageBounds(params)
	return catalog.ProductPage{Items: items, Total: len(hits), Skip: skip, Limit: limit}
}

func (b *Backend) inCategory(p *catalog.Product, id int64, name string) bool {
	for _, cid := range p.CategoryIDs {
		if cid == id {
			return true
		}
		if c, ok := b.categories[cid]; ok && strings.ToLower(c.Name) == name {
			return true
		}
	}
	return false
}

func (b *Backend) cartView(subject string) cart.Cart {
	c, ok := b.carts[subject]
	if !ok {
		return cart.Cart{UserID: subject, Items: []cart.Item{}}
	}
	out := *c
	out.Items = append([]cart.Item{}, c.Items...)
	return out
}

func (b *Backend) product(raw string) (*catalog.Product, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	p, ok := b.products[id]
	if !ok {
		return nil, failure.NotFound("product not found")
	}
	return p, nil
}

func (b *Backend) category(raw string) (*catalog.Category, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	c, ok := b.categories[id]
	if !ok {
		return nil, failure.NotFound("category not found")
	}
	return c, nil
}

// variant returns the owning product and the variant's index in it.
func (b *Backend) variant(raw string) (*catalog.Product, int, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range b.products {
		for i, v := range p.Variants {
			if v.ID == id {
				return p, i, nil
			}
		}
	}
	return nil, 0, failure.NotFound("variant not found")
}

func (b *Backend) attribute(raw string) (*catalog.Attribute, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	a, ok := b.attributes[id]
	if !ok {
		return nil, failure.NotFound("attribute not found")
	}
	return a, nil
}

// value hides values of other attributes behind not_found.
func (b *Backend) value(attributeID int64, raw string) (*catalog.AttributeValue, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	v, ok := b.values[id]
	if !ok || v.AttributeID != attributeID {
		return nil, failure.NotFound("attribute value not found")
	}
	return v, nil
}

func (b *Backend) vendor(raw string) (*vendor.Vendor, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	v, ok := b.vendors[id]
	if !ok {
		return nil, failure.NotFound("vendor not found")
	}
	return v, nil
}

// order hides orders of other users behind not_found.
func (b *Backend) order(subject, raw string) (*order.Order, error) {
	id, err := parseID(raw)
	if err != nil {
		return nil, err
	}
	o, ok := b.orders[id]
	if !ok || o.UserID != subject {
		return nil, failure.NotFound("order not found")
	}
	return o, nil
}

func itemIndex(c *cart.Cart, raw string) (int, error) {
	id, err := parseID(raw)
	if err != nil {
		return 0, err
	}
	for i, it := range c.Items {
		if it.ID == id {
			return i, nil
		}
	}
	return 0, failure.NotFound("cart item not found")
}

func sortProducts(ps []catalog.Product, by string) {
	less := func(i, j int) bool { return ps[i].ID < ps[j].ID }
	switch by {
	case catalog.SortPriceAsc:
		less = func(i, j int) bool { return ps[i].ListPrice < ps[j].ListPrice }
	case catalog.SortPriceDesc:
		less = func(i, j int) bool { return ps[i].ListPrice > ps[j].ListPrice }
	case catalog.SortNameAsc:
		less = func(i, j int) bool { return ps[i].Name < ps[j].Name }
	case catalog.SortNameDesc:
		less = func(i, j int) bool { return ps[i].Name > ps[j].Name }
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	sort.SliceStable(ps, less)
}

func page[T any](all []T, params resource.Params) []T {
	skip, limit := pageBounds(params)
	if skip >= len(all) {
		return []T{}
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]T{}, all[skip:end]...)
}

func pageBounds(params resource.Params) (int, int) {
	skip, _ := strconv.Atoi(params.Get("skip"))
	limit, err := strconv.Atoi(params.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func cloneProduct(p *catalog.Product) catalog.Product {
	out := *p
	out.CategoryIDs = append([]int64(nil), p.CategoryIDs...)
	out.Variants = make([]catalog.Variant, len(p.Variants))
	for i, v := range p.Variants {
		out.Variants[i] = cloneVariant(v)
	}
	return out
}

func cloneVariant(v catalog.Variant) catalog.Variant {
	v.AttributeValues = append([]catalog.AttributeValue{}, v.AttributeValues...)
	return v
}

func cloneCategory(c *catalog.Category) catalog.Category {
	out := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		out.ParentID = &parent
	}
	return out
}

func cloneOrder(o *order.Order) order.Order {
	out := *o
	out.Lines = append([]order.Line(nil), o.Lines...)
	return out
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.InvalidRequest(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (bool, bool) {
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(s)
	return v, err == nil
}

// assign stores v into out, which must be a *T.
func assign[T any](out any, v T) error {
	p, ok := out.(*T)
	if !ok {
		return fmt.Errorf("memory backend: result %T does not accept %T", out, v)
	}
	*p = v
	return nil
}

func assignAny(out any, v any) error {
	switch v := v.(type) {
	case catalog.Product:
		return assign(out, v)
	case catalog.SyncReport:
		return assign(out, v)
	case catalog.Category:
		return assign(out, v)
	case catalog.Variant:
		return assign(out, v)
	case catalog.Attribute:
		return assign(out, v)
	case catalog.AttributeValue:
		return assign(out, v)
	case vendor.Vendor:
		return assign(out, v)
	case cart.Cart:
		return assign(out, v)
	case order.Order:
		return assign(out, v)
	case profile.Profile:
		return assign(out, v)
	case operation.Ack:
		return assign(out, v)
	default:
		return fmt.Errorf("memory backend: unexpected result %T", v)
	}
}

func badBody(req ports.BackendRequest) error {
	return failure.InvalidRequest(fmt.Sprintf("%s.%s: unexpected body %T", req.Resource, req.Action, req.Body))
}

func unsupported(req ports.BackendRequest) error {
	return failure.Rejected(failure.CodeInvalid, fmt.Sprintf("unsupported action %s.%s", req.Resource, req.Action))
}
