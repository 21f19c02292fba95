package model

// Pagination represents common pagination parameters
type Pagination struct {
	Limit  int `json:"limit" form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `json:"offset" form:"offset" binding:"omitempty,min=0"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 500
)

// Normalize fills in the default limit and clamps out-of-range values.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
