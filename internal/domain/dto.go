package domain

// OpportunityDTO is the API representation of an opportunity
type OpportunityDTO struct {
	ID               int64             `json:"id"`
	Domain           string            `json:"domain"`
	CustomerName     string            `json:"customerName"`
	CustomerEmail    string            `json:"customerEmail,omitempty"`
	CustomerPhone    string            `json:"customerPhone,omitempty"`
	Price            float64           `json:"price"`
	Clicks           int64             `json:"clicks"`
	DateCreated      string            `json:"dateCreated"`
	LastUpdate       string            `json:"lastUpdate"`
	Status           OpportunityStatus `json:"status"`
	Product          string            `json:"product,omitempty"`
	Brand            string            `json:"brand,omitempty"`
	Source           string            `json:"source,omitempty"`
	AssignedUser     int64             `json:"assignedUser"`
	AssignedUserName string            `json:"assignedUserName,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// ActivityDTO is the API representation of an activity
type ActivityDTO struct {
	ID            int64        `json:"id"`
	OpportunityID int64        `json:"opportunityId"`
	Type          ActivityType `json:"type"`
	Note          string       `json:"note"`
	Timestamp     string       `json:"timestamp"`
	UserID        int64        `json:"userId,omitempty"`
	Username      string       `json:"username,omitempty"`
}

// UserDTO is the API representation of a user; the password hash is never exposed
type UserDTO struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt string     `json:"createdAt"`
}

// PaginatedResponse wraps a page of list results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Auth DTOs
type LoginRequest struct {
	Username string   `json:"username" validate:"required,max=100"`
	Password string   `json:"password,omitempty" validate:"max=200"`
	Role     UserRole `json:"role" validate:"required,oneof=admin sales"`
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      UserDTO `json:"user"`
}

// Opportunity request DTOs
type CreateOpportunityRequest struct {
	Domain        string            `json:"domain,omitempty" validate:"max=255"`
	CustomerName  string            `json:"customerName" validate:"required,max=200"`
	CustomerEmail string            `json:"customerEmail,omitempty" validate:"omitempty,email,max=255"`
	CustomerPhone string            `json:"customerPhone,omitempty" validate:"max=50"`
	Price         float64           `json:"price" validate:"gte=0"`
	Status        OpportunityStatus `json:"status,omitempty"`
	Product       string            `json:"product,omitempty" validate:"max=100"`
	Brand         string            `json:"brand,omitempty" validate:"max=100"`
	Source        string            `json:"source,omitempty" validate:"max=100"`
	AssignedUser  int64             `json:"assignedUser" validate:"gte=0"`
	Notes         string            `json:"notes,omitempty" validate:"max=5000"`
}

// UpdateOpportunityRequest is a partial update; omitted fields are unchanged
type UpdateOpportunityRequest struct {
	Domain        *string  `json:"domain,omitempty" validate:"omitempty,max=255"`
	CustomerName  *string  `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerEmail *string  `json:"customerEmail,omitempty" validate:"omitempty,max=255"`
	CustomerPhone *string  `json:"customerPhone,omitempty" validate:"omitempty,max=50"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Clicks        *int64   `json:"clicks,omitempty" validate:"omitempty,gte=0"`
	Product       *string  `json:"product,omitempty" validate:"omitempty,max=100"`
	Brand         *string  `json:"brand,omitempty" validate:"omitempty,max=100"`
	Source        *string  `json:"source,omitempty" validate:"omitempty,max=100"`
	Notes         *string  `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// ToPatch converts the request into a store patch
func (r UpdateOpportunityRequest) ToPatch() OpportunityPatch {
	return OpportunityPatch{
		Domain:        r.Domain,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Price:         r.Price,
		Clicks:        r.Clicks,
		Product:       r.Product,
		Brand:         r.Brand,
		Source:        r.Source,
		Notes:         r.Notes,
	}
}

type ReassignOpportunityRequest struct {
	AssignedUser *int64 `json:"assignedUser" validate:"required,gte=0"`
}

type TransitionStatusRequest struct {
	Status string `json:"status" validate:"required,max=50"`
}

type CreateActivityRequest struct {
	Type ActivityType `json:"type" validate:"required,oneof=call email note meeting"`
	Note string       `json:"note" validate:"max=2000"`
}

// User request DTOs
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,max=100"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    string   `json:"phone,omitempty" validate:"max=50"`
	Role     UserRole `json:"role" validate:"required,oneof=admin sales"`
	Password string   `json:"password,omitempty" validate:"omitempty,min=8,max=200"`
}

type UpdateUserRequest struct {
	Email    *string   `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    *string   `json:"phone,omitempty" validate:"omitempty,max=50"`
	Role     *UserRole `json:"role,omitempty" validate:"omitempty,oneof=admin sales"`
	Password *string   `json:"password,omitempty" validate:"omitempty,min=8,max=200"`
}

type UpdateUserStatusRequest struct {
	Status UserStatus `json:"status" validate:"required,oneof=active inactive"`
}
