package models

import (
	"time"

	"github.com/dmitrijs2005/garagebook/internal/timex"
)

// Vehicle is one service record. AccountID is the owning garage and is only
// ever taken from a verified session, never from client input.
type Vehicle struct {
	ID              int64      `json:"id"`
	AccountID       int64      `json:"-"`
	OwnerName       string     `json:"ownerName"`
	Phone           string     `json:"phone"`
	VehicleNumber   string     `json:"vehicleNumber"`
	Make            string     `json:"make"`
	Model           string     `json:"model"`
	LastServiceDate timex.Date `json:"lastServiceDate"`
	NextServiceDate timex.Date `json:"nextServiceDate"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// VehicleView is a Vehicle together with its status derived at read time.
type VehicleView struct {
	Vehicle
	Status ServiceStatus `json:"status"`
}

// ViewAt derives the status of v as of now.
func (v Vehicle) ViewAt(now time.Time) VehicleView {
	return VehicleView{Vehicle: v, Status: Classify(v.NextServiceDate, now)}
}
