package timeline

import "fmt"

const (
	// DefaultSlideDuration is used for slides without usable narration.
	DefaultSlideDuration = 3.0
	// NarrationPadding is added after narration so speech does not end
	// on a cut.
	NarrationPadding = 0.5
)

type Kind int

const (
	SlideEvent Kind = iota
	TransitionEvent
)

func (k Kind) String() string {
	switch k {
	case SlideEvent:
		return "slide"
	case TransitionEvent:
		return "transition"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a slide span or a transition span. For slides SlideIndex is
// set; for transitions From and To are.
type Event struct {
	Kind       Kind
	SlideIndex int
	From       int
	To         int
	Start      float64
	Duration   float64
}

// End is Start + Duration.
func (e Event) End() float64 { return e.Start + e.Duration }

// Contains reports whether t falls in [Start, End).
func (e Event) Contains(t float64) bool {
	return t >= e.Start && t < e.End()
}

// Progress is the fraction of the event elapsed at t, clamped to [0, 1].
// Zero-length events report 1.
func (e Event) Progress(t float64) float64 {
	if e.Duration <= 0 {
		return 1
	}
	p := (t - e.Start) / e.Duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Timeline is an immutable, contiguous sequence of events.
type Timeline struct {
	Events        []Event
	TotalDuration float64
}

// SlideDuration applies the padding rule: narration longer than the
// padding gets the padding appended, anything else gets the default.
func SlideDuration(narration float64) float64 {
	if narration > NarrationPadding {
		return narration + NarrationPadding
	}
	return DefaultSlideDuration
}

// Build lays slides out as Slide, Transition, ..., Slide. narration holds
// the decoded audio duration of each slide (0 when absent).
func Build(narration []float64, transition float64) Timeline {
	if transition < 0 {
		transition = 0
	}
	var (
		events []Event
		cursor float64
	)
	for i, d := range narration {
		if i > 0 {
			events = append(events, Event{Kind: TransitionEvent, From: i - 1, To: i, SlideIndex: -1, Start: cursor, Duration: transition})
			cursor += transition
		}
		dur := SlideDuration(d)
		events = append(events, Event{Kind: SlideEvent, SlideIndex: i, From: -1, To: -1, Start: cursor, Duration: dur})
		cursor += dur
	}
	return Timeline{Events: events, TotalDuration: cursor}
}

// Find returns the index of the event active at t by linear scan, or -1
// when t is outside [0, TotalDuration).
func (tl Timeline) Find(t float64) int {
	for i, e := range tl.Events {
		if e.Contains(t) {
			return i
		}
	}
	return -1
}

// SlideStart returns the start time of the slide's event.
func (tl Timeline) SlideStart(slide int) (float64, bool) {
	for _, e := range tl.Events {
		if e.Kind == SlideEvent && e.SlideIndex == slide {
			return e.Start, true
		}
	}
	return 0, false
}

// LastSlide returns the final slide event.
func (tl Timeline) LastSlide() (Event, bool) {
	for i := len(tl.Events) - 1; i >= 0; i-- {
		if tl.Events[i].Kind == SlideEvent {
			return tl.Events[i], true
		}
	}
	return Event{}, false
}

// SlideCount is the number of slide events.
func (tl Timeline) SlideCount() int {
	n := 0
	for _, e := range tl.Events {
		if e.Kind == SlideEvent {
			n++
		}
	}
	return n
}
