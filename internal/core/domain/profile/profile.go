package profile

// Profile is the account data the backend keeps for a user.
type Profile struct {
	ID        string `json:"id" msgpack:"id"`
	Email     string `json:"email" msgpack:"email"`
	Name      string `json:"name" msgpack:"name"`
	Phone     string `json:"phone,omitempty" msgpack:"phone"`
	IsActive  bool   `json:"is_active" msgpack:"is_active"`
	IsCompany bool   `json:"is_company" msgpack:"is_company"`
}

type UpdateRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Name      *string `json:"name" validate:"omitempty,min=1"`
	Phone     *string `json:"phone"`
	IsCompany *bool   `json:"is_company"`
}

// Apply copies set fields onto p.
func (r *UpdateRequest) Apply(p *Profile) {
	if r.Email != nil {
		p.Email = *r.Email
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.IsCompany != nil {
		p.IsCompany = *r.IsCompany
	}
}
