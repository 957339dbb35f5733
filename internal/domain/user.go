package domain

type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleProvider
}

// User is the slice of an account the booking core needs.
type User struct {
	ID   int64  `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Service is a catalog entry as seen by the booking core.
type Service struct {
	ID         int64  `json:"id"`
	ProviderID int64  `json:"provider_id"`
	Title      string `json:"title"`
	UnitPrice  int64  `json:"unit_price"`
	PriceType  string `json:"price_type"`
}
