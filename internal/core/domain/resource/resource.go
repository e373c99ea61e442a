package resource

// Type names a backend resource family. It selects the TTL policy.
type Type string

const (
	Catalog   Type = "catalog"
	Product   Type = "product"
	Category  Type = "category"
	Variant   Type = "variant"
	Attribute Type = "attribute"
	Vendor    Type = "vendor"
	Cart      Type = "cart"
	Order     Type = "order"
	User      Type = "user"
)

// Params carries query parameters of a logical request.
type Params map[string]string

// Get returns the value for name or "".
func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

// Clone returns a copy without empty values.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
