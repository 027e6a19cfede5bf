package pressing

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyStageBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want Stage
	}{
		{days: -365, want: Fresh},
		{days: -1, want: Fresh},
		{days: 0, want: Fresh},
		{days: 6, want: Fresh},
		{days: 7, want: Pressing},
		{days: 29, want: Pressing},
		{days: 30, want: Pressed},
		{days: 89, want: Pressed},
		{days: 90, want: Preserved},
		{days: 10000, want: Preserved},
	}

	for _, tc := range cases {
		if got := ClassifyStage(tc.days); got != tc.want {
			t.Errorf("ClassifyStage(%d) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

func TestParamsFresh(t *testing.T) {
	got := Params(0)
	want := RenderParams{Scale: 1.0, SaturationPct: 100, SepiaPct: 0, Opacity: 1.0}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Params(0) diff (-got +want):\n%s", diff)
	}
}

func TestParamsClampsForOldFlowers(t *testing.T) {
	got := Params(200)
	want := RenderParams{Scale: 0.9, SaturationPct: 65, SepiaPct: 25, Opacity: 0.85}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Params(200) diff (-got +want):\n%s", diff)
	}
}

func TestParamsNegativeDaysStayAtFreshExtreme(t *testing.T) {
	got := Params(-30)

	if got.Scale < 1.0 {
		t.Errorf("Params(-30).Scale = %v, want >= 1.0", got.Scale)
	}
	if got.SaturationPct < 100 {
		t.Errorf("Params(-30).SaturationPct = %v, want >= 100", got.SaturationPct)
	}
	if got.SepiaPct != 0 {
		t.Errorf("Params(-30).SepiaPct = %v, want 0", got.SepiaPct)
	}
	if got.Opacity < 1.0 {
		t.Errorf("Params(-30).Opacity = %v, want >= 1.0", got.Opacity)
	}
}

func TestProgressPercent(t *testing.T) {
	if got := ProgressPercent(-10); got != 0 {
		t.Errorf("ProgressPercent(-10) = %d, want 0", got)
	}
	if got := ProgressPercent(45); got != 50 {
		t.Errorf("ProgressPercent(45) = %d, want 50", got)
	}
	if got := ProgressPercent(90); got != 100 {
		t.Errorf("ProgressPercent(90) = %d, want 100", got)
	}
	if got := ProgressPercent(400); got != 100 {
		t.Errorf("ProgressPercent(400) = %d, want 100", got)
	}

	prev := ProgressPercent(0)
	for days := 1; days <= 90; days++ {
		cur := ProgressPercent(days)
		if cur < prev {
			t.Fatalf("ProgressPercent not monotone: ProgressPercent(%d) = %d < ProgressPercent(%d) = %d", days, cur, days-1, prev)
		}
		prev = cur
	}
}

func TestDaysElapsed(t *testing.T) {
	ref := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		taken time.Time
		want  int
	}{
		{taken: ref, want: 0},
		{taken: ref.AddDate(0, 0, -1), want: 1},
		{taken: ref.Add(-36 * time.Hour), want: 1},
		{taken: ref.AddDate(0, 0, -90), want: 90},
		{taken: ref.AddDate(0, 0, 3), want: -3},
		{taken: ref.Add(12 * time.Hour), want: -1},
	}

	for _, tc := range cases {
		if got := DaysElapsed(ref, tc.taken); got != tc.want {
			t.Errorf("DaysElapsed(%v, %v) = %d, want %d", ref, tc.taken, got, tc.want)
		}
	}
}

func TestStageRoundTrip(t *testing.T) {
	for _, stage := range []Stage{Fresh, Pressing, Pressed, Preserved} {
		parsed, err := ParseStage(stage.String())
		if err != nil {
			t.Fatalf("ParseStage(%q): unexpected error: %v", stage.String(), err)
		}
		if parsed != stage {
			t.Errorf("ParseStage(%q) = %v, want %v", stage.String(), parsed, stage)
		}
	}

	if _, err := ParseStage("wilted"); err == nil {
		t.Error("ParseStage(\"wilted\") succeeded, want error")
	}
}

func TestCSSHelpers(t *testing.T) {
	p := Params(0)
	if got, want := p.CSSFilter(), "saturate(100%) sepia(0%)"; got != want {
		t.Errorf("Params(0).CSSFilter() = %q, want %q", got, want)
	}
	if got, want := p.CSSTransform(), "scale(1)"; got != want {
		t.Errorf("Params(0).CSSTransform() = %q, want %q", got, want)
	}
}
