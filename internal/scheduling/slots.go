package scheduling

import "iter"

// Slots yields the candidate booking intervals inside the rule for a given
// session duration: [Start, Start+D), [Start+D, Start+2D), ... while the
// interval still fits before End. A partial trailing interval is dropped.
// The sequence is lazy and restartable.
func (r *AvailabilityRule) Slots(durationMinutes int) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if durationMinutes <= 0 {
			return
		}
		d := MinuteOfDay(durationMinutes)
		for t := r.Start; t+d <= r.End; t += d {
			if !yield(Slot{Start: t, End: t + d}) {
				return
			}
		}
	}
}

// ExpandSlots concatenates the slot sequences of several rules. Overlapping
// rules each contribute their own slots; duplicates are intentionally not
// collapsed, since every rule is an independent booking window.
func ExpandSlots(rules []AvailabilityRule, durationMinutes int) []Slot {
	var out []Slot
	for i := range rules {
		for s := range rules[i].Slots(durationMinutes) {
			out = append(out, s)
		}
	}
	return out
}
