// Package transport defines the wire-level request and response types
// for the forms module.
package transport

import "time"

type SaveSlotRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

type SlotResponse struct {
	ID        string            `json:"id"`
	SlotIndex int               `json:"slotIndex"`
	RoomLabel string            `json:"roomLabel"`
	Status    string            `json:"status"`
	Answers   map[string]string `json:"answers"`
}

type FormInstanceResponse struct {
	ID           string     `json:"id"`
	ProposalID   string     `json:"proposalId"`
	Status       string     `json:"status"`
	TotalSlots   int        `json:"totalSlots"`
	FilledSlots  int        `json:"filledSlots"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	DispatchedAt time.Time  `json:"dispatchedAt"`
}

type FormViewResponse struct {
	Instance FormInstanceResponse `json:"instance"`
	Slots    []SlotResponse       `json:"slots"`
}
