package mapper

import (
	"time"

	"github.com/straye-as/lead-api/internal/domain"
)

const timestampFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampFormat)
}

// ToOpportunityDTO converts Opportunity to OpportunityDTO.
// usernames resolves AssignedUser to a display name; it may be nil.
func ToOpportunityDTO(opp *domain.Opportunity, usernames map[int64]string) domain.OpportunityDTO {
	dto := domain.OpportunityDTO{
		ID:            opp.ID,
		Domain:        opp.Domain,
		CustomerName:  opp.CustomerName,
		CustomerEmail: opp.CustomerEmail,
		CustomerPhone: opp.CustomerPhone,
		Price:         opp.Price,
		Clicks:        opp.Clicks,
		DateCreated:   formatTime(opp.DateCreated),
		LastUpdate:    formatTime(opp.LastUpdate),
		Status:        opp.Status,
		Product:       opp.Product,
		Brand:         opp.Brand,
		Source:        opp.Source,
		AssignedUser:  opp.AssignedUser,
		Notes:         opp.Notes,
	}
	if opp.IsAssigned() {
		dto.AssignedUserName = usernames[opp.AssignedUser]
	}
	return dto
}

// ToOpportunityDTOs converts a slice preserving order
func ToOpportunityDTOs(opps []domain.Opportunity, usernames map[int64]string) []domain.OpportunityDTO {
	dtos := make([]domain.OpportunityDTO, len(opps))
	for i := range opps {
		dtos[i] = ToOpportunityDTO(&opps[i], usernames)
	}
	return dtos
}

// ToActivityDTO converts Activity to ActivityDTO
func ToActivityDTO(activity *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:            activity.ID,
		OpportunityID: activity.OpportunityID,
		Type:          activity.Type,
		Note:          activity.Note,
		Timestamp:     formatTime(activity.Timestamp),
		UserID:        activity.UserID,
		Username:      activity.Username,
	}
}

func ToActivityDTOs(activities []domain.Activity) []domain.ActivityDTO {
	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = ToActivityDTO(&activities[i])
	}
	return dtos
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: formatTime(user.CreatedAt),
	}
}

func ToUserDTOs(users []domain.User) []domain.UserDTO {
	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = ToUserDTO(&users[i])
	}
	return dtos
}

// UsernameIndex maps user ids to usernames for assignee display
func UsernameIndex(users []domain.User) map[int64]string {
	index := make(map[int64]string, len(users))
	for _, u := range users {
		index[u.ID] = u.Username
	}
	return index
}
