package domain

import "strings"

// Status is one of the four mutually exclusive buckets a slab sits in.
type Status string

const (
	StatusAvailable Status = "DISPONIVEL"
	StatusReserved  Status = "RESERVADO"
	StatusSold      Status = "VENDIDO"
	StatusInactive  Status = "INATIVO"
)

// AllStatuses lists the buckets in display order.
var AllStatuses = []Status{StatusAvailable, StatusReserved, StatusSold, StatusInactive}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", ErrUnknownStatus
	}
	return status, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold, StatusInactive:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
