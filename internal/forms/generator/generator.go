// Package generator builds passenger slots from a proposal's order
// lines.
package generator

import (
	"fmt"
	"strings"

	"tripforms_backend/internal/forms/repository"
	syncrepo "tripforms_backend/internal/sync/repository"
)

// distributeRooms spreads pax across rooms as evenly as possible. The
// first pax%rooms rooms take the extra passenger.
func distributeRooms(pax, rooms int) []int {
	if rooms <= 0 || pax <= 0 {
		return nil
	}
	base := pax / rooms
	extra := pax % rooms

	occupancy := make([]int, rooms)
	for i := range occupancy {
		occupancy[i] = base
		if i < extra {
			occupancy[i]++
		}
	}
	return occupancy
}

func roomLabel(roomType string, roomNumber int, checkIn, hotel string) string {
	return fmt.Sprintf("%s %d | %s | %s", strings.ToUpper(roomType), roomNumber, checkIn, hotel)
}

func ticketOnlyLabel(gameDetails string) string {
	if gameDetails == "" {
		return "Ticket Only"
	}
	return fmt.Sprintf("Ticket Only | %s", gameDetails)
}

// GenerateSlots builds the passenger slots for a proposal from its
// order lines. Hotel lines distribute pax across rooms; lines without
// rooms are ticket-only and collect all pax under one label. Lines
// with zero pax produce no slots.
//
// Slot indexes are 0-based within each room label, so (room label,
// index) identifies a passenger position. When two lines produce the
// same label the numbering continues instead of restarting.
func GenerateSlots(orders []syncrepo.SalesOrder) []repository.PassengerSlot {
	var slots []repository.PassengerSlot
	nextIndex := map[string]int{}

	add := func(label string) {
		slots = append(slots, repository.PassengerSlot{
			SlotIndex: nextIndex[label],
			RoomLabel: label,
			Status:    repository.SlotEmpty,
		})
		nextIndex[label]++
	}

	for _, order := range orders {
		if order.Pax <= 0 {
			continue
		}

		if order.Rooms <= 0 {
			label := ticketOnlyLabel(order.GameDetails)
			for p := 0; p < order.Pax; p++ {
				add(label)
			}
			continue
		}

		occupancy := distributeRooms(order.Pax, order.Rooms)
		for room, count := range occupancy {
			label := roomLabel(order.RoomType, room+1, order.CheckIn, order.Hotel)
			for p := 0; p < count; p++ {
				add(label)
			}
		}
	}

	return slots
}
