package runstate

import "sort"

// MaxTimelineMarkers bounds the iteration timeline; the oldest markers are
// dropped first.
const MaxTimelineMarkers = 64

// touchMarkerLocked returns the marker for iteration, creating it if absent.
func (s *Store) touchMarkerLocked(iteration int) *IterationMarker {
	i := sort.Search(len(s.markers), func(i int) bool { return s.markers[i].Iteration >= iteration })
	if i < len(s.markers) && s.markers[i].Iteration == iteration {
		return &s.markers[i]
	}
	s.markers = append(s.markers, IterationMarker{})
	copy(s.markers[i+1:], s.markers[i:])
	s.markers[i] = IterationMarker{Iteration: iteration}

	if len(s.markers) > MaxTimelineMarkers {
		drop := 0
		if s.markers[0].Iteration == s.iteration {
			drop = 1
		}
		s.markers = append(s.markers[:drop], s.markers[drop+1:]...)
		if drop == i {
			// Older than everything retained: evicted straight away.
			return &IterationMarker{Iteration: iteration}
		}
		if drop < i {
			i--
		}
	}
	return &s.markers[i]
}

// timelineLocked copies the markers and sums the totals from scratch.
func (s *Store) timelineLocked() Timeline {
	tl := Timeline{
		CurrentIteration: s.iteration,
		Markers:          make([]IterationMarker, len(s.markers)),
	}
	for i, m := range s.markers {
		m.IsCurrent = m.Iteration == s.iteration
		tl.Markers[i] = m
		tl.TotalRetries += m.RetryCount
		if m.Failed {
			tl.TotalFailed++
		}
	}
	return tl
}
