package generator

import (
	"fmt"
	"testing"

	"tripforms_backend/internal/forms/repository"
	syncrepo "tripforms_backend/internal/sync/repository"
)

func hotelOrder(pax, rooms int) syncrepo.SalesOrder {
	return syncrepo.SalesOrder{
		Status:      "CONFIRMED",
		GameDetails: "BRA x ARG",
		Hotel:       "Copacabana Palace",
		RoomType:    "Double",
		Rooms:       rooms,
		Pax:         pax,
		CheckIn:     "2026-06-14",
	}
}

func TestGenerateSlotsDistributesPaxAcrossRooms(t *testing.T) {
	slots := GenerateSlots([]syncrepo.SalesOrder{hotelOrder(5, 2)})

	if len(slots) != 5 {
		t.Fatalf("expected one slot per pax, got %d", len(slots))
	}

	byLabel := map[string]int{}
	for _, slot := range slots {
		byLabel[slot.RoomLabel]++
	}
	if byLabel["DOUBLE 1 | 2026-06-14 | Copacabana Palace"] != 3 {
		t.Fatalf("expected the first room to take the extra passenger, got %v", byLabel)
	}
	if byLabel["DOUBLE 2 | 2026-06-14 | Copacabana Palace"] != 2 {
		t.Fatalf("expected 2 passengers in room 2, got %v", byLabel)
	}
}

func TestGenerateSlotsIndexesRestartPerRoom(t *testing.T) {
	slots := GenerateSlots([]syncrepo.SalesOrder{hotelOrder(5, 2)})

	indexes := map[string][]int{}
	for _, slot := range slots {
		indexes[slot.RoomLabel] = append(indexes[slot.RoomLabel], slot.SlotIndex)
		if slot.Status != repository.SlotEmpty {
			t.Fatalf("new slots must start %q, got %q", repository.SlotEmpty, slot.Status)
		}
	}

	room1 := indexes["DOUBLE 1 | 2026-06-14 | Copacabana Palace"]
	room2 := indexes["DOUBLE 2 | 2026-06-14 | Copacabana Palace"]
	if len(room1) != 3 || room1[0] != 0 || room1[1] != 1 || room1[2] != 2 {
		t.Fatalf("expected room 1 indexes 0..2, got %v", room1)
	}
	if len(room2) != 2 || room2[0] != 0 || room2[1] != 1 {
		t.Fatalf("expected room 2 indexes 0..1, got %v", room2)
	}
}

func TestGenerateSlotsKeepsRepeatedLabelsUnique(t *testing.T) {
	// Two lines with the same hotel, type and check-in produce the
	// same labels; numbering must continue so (label, index) stays
	// unique.
	slots := GenerateSlots([]syncrepo.SalesOrder{hotelOrder(2, 1), hotelOrder(3, 1)})

	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	seen := map[string]bool{}
	for _, slot := range slots {
		key := fmt.Sprintf("%s/%d", slot.RoomLabel, slot.SlotIndex)
		if seen[key] {
			t.Fatalf("duplicate (label, index) pair %q", key)
		}
		seen[key] = true
	}
}

func TestGenerateSlotsLabelsTicketOnlyLines(t *testing.T) {
	order := hotelOrder(3, 0)
	order.Hotel = ""
	order.RoomType = ""

	slots := GenerateSlots([]syncrepo.SalesOrder{order})
	if len(slots) != 3 {
		t.Fatalf("expected 3 ticket-only slots, got %d", len(slots))
	}
	for i, slot := range slots {
		if slot.RoomLabel != "Ticket Only | BRA x ARG" {
			t.Fatalf("expected ticket-only label with game details, got %q", slot.RoomLabel)
		}
		if slot.SlotIndex != i {
			t.Fatalf("expected ticket-only index %d, got %d", i, slot.SlotIndex)
		}
	}

	order.GameDetails = ""
	slots = GenerateSlots([]syncrepo.SalesOrder{order})
	if slots[0].RoomLabel != "Ticket Only" {
		t.Fatalf("expected plain ticket-only label, got %q", slots[0].RoomLabel)
	}
}

func TestGenerateSlotsSkipsLinesWithoutPax(t *testing.T) {
	slots := GenerateSlots([]syncrepo.SalesOrder{hotelOrder(0, 2), hotelOrder(-1, 1)})
	if len(slots) != 0 {
		t.Fatalf("expected no slots for pax<=0 lines, got %d", len(slots))
	}
}

func TestDistributeRooms(t *testing.T) {
	cases := []struct {
		pax, rooms int
		want       []int
	}{
		{4, 2, []int{2, 2}},
		{5, 2, []int{3, 2}},
		{7, 3, []int{3, 2, 2}},
		{1, 3, []int{1, 0, 0}},
		{0, 2, nil},
		{3, 0, nil},
	}

	for _, tc := range cases {
		got := distributeRooms(tc.pax, tc.rooms)
		if len(got) != len(tc.want) {
			t.Fatalf("distributeRooms(%d, %d) = %v, want %v", tc.pax, tc.rooms, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("distributeRooms(%d, %d) = %v, want %v", tc.pax, tc.rooms, got, tc.want)
			}
		}
	}
}
