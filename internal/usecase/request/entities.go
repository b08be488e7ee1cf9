package request

import domain "timeaway-backend/internal/domain/request"

type CreateRequestInput struct {
	Name          string
	Email         string
	StartDate     string
	EndDate       string
	StartTime     string
	EndTime       string
	ChargeAgainst domain.ChargeAgainst
	Manager       string
	Status        domain.Status // empty means Pending
}

type RequestDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	ChargeAgainst string `json:"charge_against"`
	Manager       string `json:"manager"`
	Status        string `json:"status"`
}

type CreateResult struct {
	ID      string     `json:"id"`
	Request RequestDTO `json:"request"`
}

type ListInput struct {
	Status *domain.Status
	Limit  int
}

type UpdateResult struct {
	Updated  bool   `json:"updated"`
	Modified int64  `json:"modified"`
	Message  string `json:"message"`
}

func toDTO(r *domain.Request) RequestDTO {
	return RequestDTO{
		ID:            r.ID,
		Name:          r.Name,
		Email:         r.Email,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		ChargeAgainst: r.ChargeAgainst.String(),
		Manager:       r.Manager,
		Status:        r.Status.String(),
	}
}
