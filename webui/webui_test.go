package webui

import (
	"testing"
	"time"

	"flowerpress/dbtypes"

	"github.com/google/go-cmp/cmp"
)

func TestParseBackgroundChoice(t *testing.T) {
	testCases := []struct {
		value   string
		want    dbtypes.Background
		wantErr bool
	}{
		{value: "", want: dbtypes.Background{Type: dbtypes.BackgroundNone}},
		{value: "none", want: dbtypes.Background{Type: dbtypes.BackgroundNone}},
		{value: "custom", want: dbtypes.Background{Type: dbtypes.BackgroundCustom}},
		{value: "preset:paper1", want: dbtypes.Background{Type: dbtypes.BackgroundPreset, Value: "paper1"}},
		{value: "preset:velvet", wantErr: true},
		{value: "sparkles", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := parseBackgroundChoice(tc.value)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseBackgroundChoice(%q) succeeded, wanted error", tc.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseBackgroundChoice(%q) returned error: %v", tc.value, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("parseBackgroundChoice(%q) diff (-want +got):\n%s", tc.value, diff)
		}
	}
}

func TestFlowerCardFreshFlower(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	card := flowerCard(&dbtypes.Flower{
		ID:        "flower-1",
		Note:      "First rose of the season",
		ImageURL:  "https://storage.googleapis.com/bucket/flower-images/u/1_rose.jpg",
		DateTaken: now,
		Category:  dbtypes.CategoryGarden,
	}, now)

	if card.StageName != "Fresh" {
		t.Errorf("card.StageName = %q, want %q", card.StageName, "Fresh")
	}
	if card.BadgeClass != "text-bg-success" {
		t.Errorf("card.BadgeClass = %q, want %q", card.BadgeClass, "text-bg-success")
	}
	if card.ProgressPercent != 0 {
		t.Errorf("card.ProgressPercent = %d, want 0", card.ProgressPercent)
	}
	wantStyle := "filter: saturate(100%) sepia(0%); transform: scale(1); opacity: 1;"
	if string(card.AgingStyle) != wantStyle {
		t.Errorf("card.AgingStyle = %q, want %q", card.AgingStyle, wantStyle)
	}
	if card.BackgroundStyle != "" {
		t.Errorf("card.BackgroundStyle = %q, want empty", card.BackgroundStyle)
	}
	if card.EditLink != "/edit-flower?flower=flower-1" {
		t.Errorf("card.EditLink = %q", card.EditLink)
	}
}

func TestFlowerCardPresetBackground(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	card := flowerCard(&dbtypes.Flower{
		ID:         "flower-2",
		DateTaken:  now.AddDate(0, 0, -40),
		Category:   dbtypes.CategoryWild,
		Background: dbtypes.Background{Type: dbtypes.BackgroundPreset, Value: "rabbits"},
	}, now)

	if card.StageName != "Pressed" {
		t.Errorf("card.StageName = %q, want %q", card.StageName, "Pressed")
	}
	want := "background-image: url('/rabbits.jpg'); background-size: cover;"
	if string(card.BackgroundStyle) != want {
		t.Errorf("card.BackgroundStyle = %q, want %q", card.BackgroundStyle, want)
	}
}

func TestFlowerCardUnknownPresetGetsNoBackground(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	card := flowerCard(&dbtypes.Flower{
		ID:         "flower-3",
		DateTaken:  now,
		Background: dbtypes.Background{Type: dbtypes.BackgroundPreset, Value: "no-such-preset"},
	}, now)

	if card.BackgroundStyle != "" {
		t.Errorf("card.BackgroundStyle = %q, want empty", card.BackgroundStyle)
	}
}

func TestImageAspectRatioFallsBackOnGarbage(t *testing.T) {
	got := imageAspectRatio([]byte("not an image"))
	if got != dbtypes.DefaultAspectRatio {
		t.Errorf("imageAspectRatio = %v, want %v", got, dbtypes.DefaultAspectRatio)
	}
}
