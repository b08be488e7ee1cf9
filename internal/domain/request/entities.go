package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("request not found")
	ErrInvalidID            = errors.New("invalid request id")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidChargeAgainst = errors.New("invalid charge_against")
	ErrInvalidDate          = errors.New("invalid date, want MM/DD/YYYY")
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusProcessed Status = "Processed"
	StatusCompleted Status = "Completed"
)

// Statuses lists every lifecycle state in advancing order.
var Statuses = []Status{StatusPending, StatusApproved, StatusProcessed, StatusCompleted}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) String() string { return string(s) }

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

type ChargeAgainst string

const (
	ChargeVacation       ChargeAgainst = "Vacation"
	ChargeBankedTime     ChargeAgainst = "BankedTime"
	ChargeBankedStatTime ChargeAgainst = "BankedStatTime"
	ChargeUnPaidTime     ChargeAgainst = "UnPaidTime"
	ChargeOther          ChargeAgainst = "Other"
)

var ChargeCategories = []ChargeAgainst{
	ChargeVacation, ChargeBankedTime, ChargeBankedStatTime, ChargeUnPaidTime, ChargeOther,
}

func ParseChargeAgainst(s string) (ChargeAgainst, error) {
	for _, c := range ChargeCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChargeAgainst, s)
}

func (c ChargeAgainst) String() string { return string(c) }

func (c *ChargeAgainst) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	v, err := ParseChargeAgainst(raw)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Request is a single time-away submission. ID is assigned by the store on
// insert and is empty before that.
type Request struct {
	ID            string
	Name          string
	Email         string
	StartDate     string // MM/DD/YYYY
	EndDate       string // MM/DD/YYYY
	StartTime     string
	EndTime       string
	ChargeAgainst ChargeAgainst
	Manager       string
	Status        Status
}

// Normalize fills defaults applied on insert.
func (r *Request) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Manager = strings.TrimSpace(r.Manager)
	if r.Status == "" {
		r.Status = StatusPending
	}
}
