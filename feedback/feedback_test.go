package feedback

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	m := New(nil, "owner@flowerpress.dev", "bot@flowerpress.dev")

	msg, err := m.buildMessage(&Submission{
		FromName:  "Liya",
		FromEmail: "liya@example.com",
		Subject:   "Love the gallery",
		Message:   "The pressing animation is lovely.",
		Timestamp: time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}

	if got, want := msg.Subject, "FlowerPress Feedback: Love the gallery"; got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
	if len(msg.Personalizations) != 1 || len(msg.Personalizations[0].To) != 1 {
		t.Fatalf("Message does not have exactly one recipient: %+v", msg.Personalizations)
	}
	if got, want := msg.Personalizations[0].To[0].Address, "owner@flowerpress.dev"; got != want {
		t.Errorf("To = %q, want %q", got, want)
	}
	if got, want := msg.From.Address, "bot@flowerpress.dev"; got != want {
		t.Errorf("From = %q, want %q", got, want)
	}

	if len(msg.Content) != 1 {
		t.Fatalf("Message has %d content parts, want 1", len(msg.Content))
	}
	body := msg.Content[0].Value
	for _, fragment := range []string{
		"Liya (liya@example.com)",
		"Subject: Love the gallery",
		"2024-06-15 09:30:00 UTC",
		"The pressing animation is lovely.",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("Email body missing %q:\n%s", fragment, body)
		}
	}
}
