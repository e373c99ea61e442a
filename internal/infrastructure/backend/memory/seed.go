package memory

import (
	"github.com/avatarctic/commerce-gateway/internal/core/domain/catalog"
	"github.com/avatarctic/commerce-gateway/internal/core/domain/vendor"
)

// SeedDemo loads a small catalog for local runs.
func SeedDemo(b *Backend) {
	acme := b.AddVendor(vendor.Vendor{Name: "Acme Outfitters", Email: "sales@acme.test", IsCompany: true, IsActive: true})
	north := b.AddVendor(vendor.Vendor{Name: "North Trail", Email: "hello@northtrail.test", IsCompany: true, IsActive: true})

	shoes := b.AddCategory(catalog.Category{Name: "shoes", VendorID: acme.ID})
	jackets := b.AddCategory(catalog.Category{Name: "jackets", VendorID: north.ID})

	b.AddCategory(catalog.Category{Name: "running shoes", VendorID: acme.ID, ParentID: &shoes.ID})

	size := b.AddAttribute(catalog.Attribute{Name: "size", DisplayName: "Size", AttributeType: "select"})
	eu42 := b.AddAttributeValue(catalog.AttributeValue{AttributeID: size.ID, Value: "42", DisplayValue: "EU 42", Sequence: 1})
	eu43 := b.AddAttributeValue(catalog.AttributeValue{AttributeID: size.ID, Value: "43", DisplayValue: "EU 43", Sequence: 2})

	b.AddProduct(catalog.Product{Name: "Trail Runner", ListPrice: 89.90, VendorID: acme.ID, CategoryIDs: []int64{shoes.ID}, IsActive: true, Tags: "running,outdoor",
		Variants: []catalog.Variant{
			{SKU: "TR-42", Price: 89.90, StockQuantity: 12, AttributeValues: []catalog.AttributeValue{eu42}},
			{SKU: "TR-43", Price: 89.90, StockQuantity: 3, AttributeValues: []catalog.AttributeValue{eu43}},
		}})
	b.AddProduct(catalog.Product{Name: "City Sneaker", ListPrice: 59.00, VendorID: acme.ID, CategoryIDs: []int64{shoes.ID}, IsActive: true, Tags: "casual"})
	b.AddProduct(catalog.Product{Name: "Alpine Shell", ListPrice: 220.00, VendorID: north.ID, CategoryIDs: []int64{jackets.ID}, IsActive: true, Tags: "outdoor,rain"})
}
