package dto

import "time"

// StatusResponse is the passive connection badge.
type StatusResponse struct {
	TripID          string `json:"trip_id"`
	Mode            string `json:"mode"`
	ConnectionError string `json:"connection_error,omitempty"`
	LastWriteError  string `json:"last_write_error,omitempty"`
}

type SettingsRequest struct {
	Kickoff Instant `json:"kickoff"`
}

type SettingsResponse struct {
	Kickoff *time.Time `json:"kickoff"`
}

type AssigneeRequest struct {
	Name string `json:"name" binding:"required,max=80"`
}

type AssigneesResponse struct {
	Items []string `json:"items"`
}

// ShareResponse carries an exported snapshot token and a ready-to-send link.
type ShareResponse struct {
	Token string `json:"token"`
	Link  string `json:"link"`
}

// ImportRequest replaces the whole trip with a shared snapshot. Confirm must be true.
type ImportRequest struct {
	Token   string `json:"token" binding:"required"`
	Confirm bool   `json:"confirm"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

// Event is one message on the websocket feed.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
