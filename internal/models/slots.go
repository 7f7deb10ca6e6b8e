package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Every court is open from 12:00 to 22:00 in one-hour blocks.
const (
	FirstSlotHour = 12
	LastSlotHour  = 22
)

// DefaultSlots returns the hourly time slots seeded for a newly created court:
// 12:00-13:00, 13:00-14:00, ... 21:00-22:00.
func DefaultSlots(courtID uuid.UUID) []TimeSlot {
	slots := make([]TimeSlot, 0, LastSlotHour-FirstSlotHour)
	for h := FirstSlotHour; h < LastSlotHour; h++ {
		slots = append(slots, TimeSlot{
			CourtID:   courtID,
			StartTime: fmt.Sprintf("%02d:00", h),
			EndTime:   fmt.Sprintf("%02d:00", h+1),
		})
	}
	return slots
}
