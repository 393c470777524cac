package domain

import (
	"time"
)

// UserRole determines which partition of opportunities a user may see and mutate
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleSales UserRole = "sales"
)

// IsValid checks if the UserRole is a valid enum value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSales:
		return true
	}
	return false
}

// UserStatus represents whether a user account is enabled
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// IsValid checks if the UserStatus is a valid enum value
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive:
		return true
	}
	return false
}

// User is an administrator or sales agent
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"type:varchar(255)" json:"email"`
	Phone        string     `gorm:"type:varchar(50)" json:"phone"`
	Role         UserRole   `gorm:"type:varchar(20);not null;index" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	PasswordHash string     `gorm:"type:varchar(255);column:password_hash" json:"-"`
	CreatedAt    time.Time  `gorm:"not null;column:created_at" json:"createdAt"`
}

// IsActive reports whether the user may log in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// OpportunityStatus is the lifecycle state of an opportunity
type OpportunityStatus string

const (
	StatusNew        OpportunityStatus = "New"
	StatusExpiring   OpportunityStatus = "Expiring"
	StatusRegistered OpportunityStatus = "Registered"
	StatusFlagged    OpportunityStatus = "Flagged"
	StatusExpired    OpportunityStatus = "Expired"
)

// OpportunityStatuses lists every status in happy-path order
var OpportunityStatuses = []OpportunityStatus{
	StatusNew,
	StatusExpiring,
	StatusFlagged,
	StatusRegistered,
	StatusExpired,
}

// IsValid checks if the OpportunityStatus is a valid enum value
func (s OpportunityStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusExpiring, StatusRegistered, StatusFlagged, StatusExpired:
		return true
	}
	return false
}

// Unassigned is the AssignedUser value of an opportunity nobody owns
const Unassigned int64 = 0

// Opportunity is a sales lead tracked through its status lifecycle
type Opportunity struct {
	ID            int64             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Domain        string            `gorm:"type:varchar(255);index" json:"domain"`
	CustomerName  string            `gorm:"type:varchar(200);not null;column:customer_name" json:"customerName"`
	CustomerEmail string            `gorm:"type:varchar(255);column:customer_email" json:"customerEmail"`
	CustomerPhone string            `gorm:"type:varchar(50);column:customer_phone" json:"customerPhone"`
	Price         float64           `gorm:"not null;default:0" json:"price"`
	Clicks        int64             `gorm:"not null;default:0" json:"clicks"`
	DateCreated   time.Time         `gorm:"not null;column:date_created;index" json:"dateCreated"`
	LastUpdate    time.Time         `gorm:"not null;column:last_update" json:"lastUpdate"`
	Status        OpportunityStatus `gorm:"type:varchar(20);not null;default:'New';index" json:"status"`
	Product       string            `gorm:"type:varchar(100)" json:"product"`
	Brand         string            `gorm:"type:varchar(100)" json:"brand"`
	Source        string            `gorm:"type:varchar(100)" json:"source"`
	AssignedUser  int64             `gorm:"not null;default:0;column:assigned_user;index" json:"assignedUser"`
	Notes         string            `gorm:"type:text" json:"notes"`
}

// IsAssigned reports whether an opportunity has an owner
func (o *Opportunity) IsAssigned() bool {
	return o.AssignedUser != Unassigned
}

// OpportunityPatch carries the fields an update changes; nil fields are left as is
type OpportunityPatch struct {
	Domain        *string
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Price         *float64
	Clicks        *int64
	Status        *OpportunityStatus
	Product       *string
	Brand         *string
	Source        *string
	AssignedUser  *int64
	Notes         *string
}

// Apply writes the non-nil patch fields onto opp
func (p OpportunityPatch) Apply(opp *Opportunity) {
	if p.Domain != nil {
		opp.Domain = *p.Domain
	}
	if p.CustomerName != nil {
		opp.CustomerName = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		opp.CustomerEmail = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		opp.CustomerPhone = *p.CustomerPhone
	}
	if p.Price != nil {
		opp.Price = *p.Price
	}
	if p.Clicks != nil {
		opp.Clicks = *p.Clicks
	}
	if p.Status != nil {
		opp.Status = *p.Status
	}
	if p.Product != nil {
		opp.Product = *p.Product
	}
	if p.Brand != nil {
		opp.Brand = *p.Brand
	}
	if p.Source != nil {
		opp.Source = *p.Source
	}
	if p.AssignedUser != nil {
		opp.AssignedUser = *p.AssignedUser
	}
	if p.Notes != nil {
		opp.Notes = *p.Notes
	}
}

// ActivityType represents the kind of interaction logged against an opportunity
type ActivityType string

const (
	ActivityTypeCall    ActivityType = "call"
	ActivityTypeEmail   ActivityType = "email"
	ActivityTypeNote    ActivityType = "note"
	ActivityTypeMeeting ActivityType = "meeting"
)

// IsValid checks if the ActivityType is a valid enum value
func (t ActivityType) IsValid() bool {
	switch t {
	case ActivityTypeCall, ActivityTypeEmail, ActivityTypeNote, ActivityTypeMeeting:
		return true
	}
	return false
}

// Activity is an append-only history entry attached to an opportunity
type Activity struct {
	ID            int64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OpportunityID int64        `gorm:"not null;index;column:opportunity_id" json:"opportunityId"`
	Type          ActivityType `gorm:"type:varchar(20);not null" json:"type"`
	Note          string       `gorm:"type:text" json:"note"`
	Timestamp     time.Time    `gorm:"not null;index" json:"timestamp"`
	UserID        int64        `gorm:"not null;default:0;column:user_id" json:"userId"`
	Username      string       `gorm:"type:varchar(100)" json:"username"`
}

// Actor identifies who performed a mutation, for activity attribution
type Actor struct {
	UserID   int64
	Username string
}
