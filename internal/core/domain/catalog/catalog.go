package catalog

// SortOrder values accepted by catalog search.
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// ValidSort reports whether s is a supported sort order (empty means unsorted).
func ValidSort(s string) bool {
	switch s {
	case "", SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc:
		return true
	}
	return false
}

type AttributeValue struct {
	ID           int64  `json:"id" msgpack:"id"`
	AttributeID  int64  `json:"attribute_id" msgpack:"attribute_id"`
	Value        string `json:"value" msgpack:"value"`
	DisplayValue string `json:"display_value" msgpack:"display_value"`
	Sequence     int    `json:"sequence" msgpack:"sequence"`
}

// AttributeValueInput is the mutation body for attribute value create and update.
type AttributeValueInput struct {
	Value        string `json:"value" validate:"required"`
	DisplayValue string `json:"display_value"`
	Sequence     int    `json:"sequence" validate:"gte=0"`
}

type Attribute struct {
	ID            int64  `json:"id" msgpack:"id"`
	Name          string `json:"name" msgpack:"name"`
	DisplayName   string `json:"display_name" msgpack:"display_name"`
	AttributeType string `json:"attribute_type" msgpack:"attribute_type"`
	Description   string `json:"description,omitempty" msgpack:"description"`
}

type AttributeInput struct {
	Name          string `json:"name" validate:"required"`
	DisplayName   string `json:"display_name" validate:"required"`
	AttributeType string `json:"attribute_type" validate:"required,oneof=select radio color text"`
	Description   string `json:"description"`
}

type Variant struct {
	ID              int64            `json:"id" msgpack:"id"`
	ProductID       int64            `json:"product_id" msgpack:"product_id"`
	SKU             string           `json:"sku" msgpack:"sku"`
	Price           float64          `json:"price" msgpack:"price"`
	StockQuantity   int              `json:"stock_quantity" msgpack:"stock_quantity"`
	AttributeValues []AttributeValue `json:"attribute_values" msgpack:"attribute_values"`
}

// VariantInput is the mutation body for variant create and update. ProductID is fixed on update.
type VariantInput struct {
	ProductID         int64   `json:"product_id" validate:"required,gt=0"`
	SKU               string  `json:"sku" validate:"required"`
	Price             float64 `json:"price" validate:"gte=0"`
	StockQuantity     int     `json:"stock_quantity" validate:"gte=0"`
	AttributeValueIDs []int64 `json:"attribute_value_ids" validate:"dive,gt=0"`
}

type Product struct {
	ID          int64     `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Description string    `json:"description,omitempty" msgpack:"description"`
	ListPrice   float64   `json:"list_price" msgpack:"list_price"`
	VendorID    int64     `json:"vendor_id" msgpack:"vendor_id"`
	CategoryIDs []int64   `json:"category_ids" msgpack:"category_ids"`
	IsActive    bool      `json:"is_active" msgpack:"is_active"`
	ImageURL    string    `json:"image_url,omitempty" msgpack:"image_url"`
	Tags        string    `json:"tags,omitempty" msgpack:"tags"`
	Barcode     string    `json:"barcode,omitempty" msgpack:"barcode"`
	Variants    []Variant `json:"variants" msgpack:"variants"`
}

// ProductInput is the mutation body for product create and update.
type ProductInput struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	ListPrice   float64 `json:"list_price" validate:"gte=0"`
	VendorID    int64   `json:"vendor_id" validate:"required,gt=0"`
	CategoryIDs []int64 `json:"category_ids" validate:"required,min=1,dive,gt=0"`
	IsActive    *bool   `json:"is_active"`
	ImageURL    string  `json:"image_url" validate:"omitempty,url"`
	Tags        string  `json:"tags"`
	Barcode     string  `json:"barcode"`
}

// ProductPage is one page of search results.
type ProductPage struct {
	Items []Product `json:"items" msgpack:"items"`
	Total int       `json:"total" msgpack:"total"`
	Skip  int       `json:"skip" msgpack:"skip"`
	Limit int       `json:"limit" msgpack:"limit"`
}

// SyncReport is returned by a catalog synchronisation.
type SyncReport struct {
	Products   int `json:"products" msgpack:"products"`
	Categories int `json:"categories" msgpack:"categories"`
}

type Category struct {
	ID          int64  `json:"id" msgpack:"id"`
	Name        string `json:"name" msgpack:"name"`
	Description string `json:"description,omitempty" msgpack:"description"`
	ParentID    *int64 `json:"parent_id,omitempty" msgpack:"parent_id"`
	VendorID    int64  `json:"vendor_id" msgpack:"vendor_id"`
}

// CategoryInput is the mutation body for category create and update.
type CategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parent_id" validate:"omitempty,gt=0"`
	VendorID    int64  `json:"vendor_id" validate:"required,gt=0"`
}
