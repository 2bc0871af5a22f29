package users

// TimeSlot is a bucket of the scan time-of-day histogram.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
	SlotNight     TimeSlot = "night"
)

// SlotForHour maps an hour of day to its slot:
// afternoon [11,17), evening [17,22), night [22,24) and [0,5), morning otherwise.
// Hours outside 0-23 are reduced modulo 24 first.
func SlotForHour(hour int) TimeSlot {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	switch {
	case hour >= 11 && hour < 17:
		return SlotAfternoon
	case hour >= 17 && hour < 22:
		return SlotEvening
	case hour >= 22 || hour < 5:
		return SlotNight
	default:
		return SlotMorning
	}
}

// Valid reports whether s is one of the four slots.
func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening, SlotNight:
		return true
	}
	return false
}
