package dto

import "time"

type MachineResponse struct {
	MachineID   int64   `json:"machine_id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	CostPerPlay float64 `json:"cost_per_play"`
}

type PendingCommissionResponse struct {
	CommissionID int64     `json:"commission_id"`
	Amount       float64   `json:"amount"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

type StopContextResponse struct {
	StopIndex         int                        `json:"stop_index"`
	DisplayName       string                     `json:"display_name"`
	Machines          []MachineResponse          `json:"machines"`
	PendingCommission *PendingCommissionResponse `json:"pending_commission,omitempty"`
}

type CollectionEntryRequest struct {
	MachineID int64  `json:"machine_id"`
	Coins     string `json:"coins"`
	Prizes    string `json:"prizes"`
}

type GPSFixRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

type AdvanceRunRequest struct {
	StopIndex     int                      `json:"stop_index"`
	DisplayName   string                   `json:"display_name"`
	Collections   []CollectionEntryRequest `json:"collections"`
	Notes         string                   `json:"notes"`
	GPS           *GPSFixRequest           `json:"gps"`
	CommissionID  *int64                   `json:"commission_id"`
	PayCommission bool                     `json:"pay_commission"`
}

type GPSFixResponse struct {
	Captured bool     `json:"captured"`
	Reason   string   `json:"reason,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}
