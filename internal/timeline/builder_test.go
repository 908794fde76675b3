package timeline

import (
	"math"
	"testing"
)

func TestSlideDuration(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{in: 0, want: 3.0},
		{in: 0.2, want: 3.0},
		{in: 0.5, want: 3.0},
		{in: 0.51, want: 1.01},
		{in: 2.0, want: 2.5},
	}
	for _, tt := range tests {
		if got := SlideDuration(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("SlideDuration(%v): want=%v got=%v", tt.in, tt.want, got)
		}
	}
}

func TestBuildThreeSlides(t *testing.T) {
	tl := Build([]float64{1.0, 0.3, 4.0}, 0)

	if len(tl.Events) != 5 {
		t.Fatalf("events: want=5 got=%d", len(tl.Events))
	}
	wantKinds := []Kind{SlideEvent, TransitionEvent, SlideEvent, TransitionEvent, SlideEvent}
	for i, k := range wantKinds {
		if tl.Events[i].Kind != k {
			t.Fatalf("event %d: want=%s got=%s", i, k, tl.Events[i].Kind)
		}
	}
	slideDur := []float64{}
	for _, e := range tl.Events {
		if e.Kind == SlideEvent {
			slideDur = append(slideDur, e.Duration)
		}
	}
	want := []float64{1.5, 3.0, 4.5}
	for i := range want {
		if slideDur[i] != want[i] {
			t.Fatalf("slide %d duration: want=%v got=%v", i, want[i], slideDur[i])
		}
	}
	if tl.TotalDuration != 9.0 {
		t.Fatalf("total: want=9 got=%v", tl.TotalDuration)
	}
	if tl.Events[1].From != 0 || tl.Events[1].To != 1 {
		t.Fatalf("transition endpoints: %+v", tl.Events[1])
	}
}

func TestBuildContiguous(t *testing.T) {
	for _, transition := range []float64{0, 0.4, 1.25} {
		tl := Build([]float64{2.2, 0, 0.7, 5.1}, transition)
		var sum float64
		for i, e := range tl.Events {
			sum += e.Duration
			if i+1 < len(tl.Events) && tl.Events[i+1].Start != e.Start+e.Duration {
				t.Fatalf("transition=%v: event %d not contiguous", transition, i+1)
			}
		}
		if math.Abs(sum-tl.TotalDuration) > 1e-9 {
			t.Fatalf("transition=%v: total=%v sum=%v", transition, tl.TotalDuration, sum)
		}
		if tl.Events[0].Start != 0 {
			t.Fatalf("first event must start at 0")
		}
		if last := tl.Events[len(tl.Events)-1]; last.Kind != SlideEvent {
			t.Fatalf("trailing transition")
		}
	}
}

func TestBuildEdgeCases(t *testing.T) {
	if tl := Build(nil, 0); len(tl.Events) != 0 || tl.TotalDuration != 0 {
		t.Fatalf("empty build: %+v", tl)
	}
	tl := Build([]float64{1}, 2)
	if len(tl.Events) != 1 || tl.TotalDuration != 1.5 {
		t.Fatalf("single slide: %+v", tl)
	}
	tl = Build([]float64{1, 1}, -3)
	if tl.Events[1].Duration != 0 {
		t.Fatalf("negative transition must clamp to 0")
	}
}

func TestFind(t *testing.T) {
	tl := Build([]float64{1.0, 0.3, 4.0}, 0)
	tests := []struct {
		at    float64
		slide int
	}{
		{at: 0, slide: 0},
		{at: 1.49, slide: 0},
		{at: 1.5, slide: 1},
		{at: 4.49, slide: 1},
		{at: 4.5, slide: 2},
		{at: 8.99, slide: 2},
	}
	for _, tt := range tests {
		idx := tl.Find(tt.at)
		if idx < 0 {
			t.Fatalf("Find(%v): no event", tt.at)
		}
		if e := tl.Events[idx]; e.Kind != SlideEvent || e.SlideIndex != tt.slide {
			t.Fatalf("Find(%v): want slide %d got %+v", tt.at, tt.slide, e)
		}
	}
	if tl.Find(9.0) != -1 || tl.Find(-0.1) != -1 {
		t.Fatalf("out of range lookups must return -1")
	}

	withTransitions := Build([]float64{1.0, 1.0}, 1)
	if e := withTransitions.Events[withTransitions.Find(2.0)]; e.Kind != TransitionEvent {
		t.Fatalf("expected transition at 2.0, got %+v", e)
	}
	if p := withTransitions.Events[1].Progress(2.0); p != 0.5 {
		t.Fatalf("progress: want=0.5 got=%v", p)
	}
}

func TestSlideStartAndLast(t *testing.T) {
	tl := Build([]float64{1.0, 0.3, 4.0}, 0.5)
	start, ok := tl.SlideStart(2)
	if !ok || start != 5.5 {
		t.Fatalf("SlideStart(2): want=5.5 got=%v ok=%v", start, ok)
	}
	last, ok := tl.LastSlide()
	if !ok || last.SlideIndex != 2 {
		t.Fatalf("LastSlide: %+v", last)
	}
	if tl.SlideCount() != 3 {
		t.Fatalf("SlideCount: got=%d", tl.SlideCount())
	}
}
