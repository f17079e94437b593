package midifile

import "sort"

// chordGroup collapses simultaneous notes that share an exact
// (channel, startTick, endTick, velocity) signature into one chord.
// There is no tolerance window: near-misses stay separate events.
type chordGroup struct {
	channel   uint8
	startTick uint32
	endTick   uint32
	velocity  uint8
	pitches   []int
}

type chordKey struct {
	channel   uint8
	startTick uint32
	endTick   uint32
	velocity  uint8
}

// groupChords merges raw notes into chord groups with sorted, deduplicated
// pitch lists. Output order is deterministic: by start tick, then channel,
// end tick, velocity.
func groupChords(notes []rawNote) []chordGroup {
	byKey := make(map[chordKey][]int)
	for _, n := range notes {
		key := chordKey{
			channel:   n.channel,
			startTick: n.startTick,
			endTick:   n.endTick,
			velocity:  n.velocity,
		}
		byKey[key] = append(byKey[key], int(n.pitch))
	}

	groups := make([]chordGroup, 0, len(byKey))
	for key, pitches := range byKey {
		sort.Ints(pitches)
		unique := pitches[:0]
		for _, p := range pitches {
			if len(unique) == 0 || p != unique[len(unique)-1] {
				unique = append(unique, p)
			}
		}
		groups = append(groups, chordGroup{
			channel:   key.channel,
			startTick: key.startTick,
			endTick:   key.endTick,
			velocity:  key.velocity,
			pitches:   unique,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.startTick != b.startTick {
			return a.startTick < b.startTick
		}
		if a.channel != b.channel {
			return a.channel < b.channel
		}
		if a.endTick != b.endTick {
			return a.endTick < b.endTick
		}
		return a.velocity < b.velocity
	})
	return groups
}
