package task

import (
	"strings"
	"testing"
	"time"
)

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		name    string
		title   string
		want    string
		wantErr bool
	}{
		{"plain", "buy milk", "buy milk", false},
		{"trimmed", "  buy milk \t", "buy milk", false},
		{"empty", "", "", true},
		{"whitespace only", " \t\n ", "", true},
		{"exactly max runes", strings.Repeat("ü", MaxTitleLen), strings.Repeat("ü", MaxTitleLen), false},
		{"over max runes", strings.Repeat("ü", MaxTitleLen+1), "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateTitle(tc.title)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				var vErr *ValidationError
				if !asValidation(err, &vErr) {
					t.Errorf("expected *ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func asValidation(err error, target **ValidationError) bool {
	v, ok := err.(*ValidationError)
	if ok {
		*target = v
	}
	return ok
}

func TestTitleLengthCountsRunesNotBytes(t *testing.T) {
	// 100 multibyte runes exceed 100 bytes but must still be accepted.
	title := strings.Repeat("日", MaxTitleLen)
	if len(title) <= MaxTitleLen {
		t.Fatal("test setup: title should exceed MaxTitleLen in bytes")
	}
	if _, err := ValidateTitle(title); err != nil {
		t.Errorf("expected rune-counted title accepted, got %v", err)
	}
}

func TestStatusIsKnown(t *testing.T) {
	for _, s := range KnownStatuses {
		if !s.IsKnown() {
			t.Errorf("%s should be known", s)
		}
	}
	if Status("deleted").IsKnown() {
		t.Error("arbitrary status must not be known")
	}
	if Status("").IsKnown() {
		t.Error("empty status must not be known")
	}
}

func TestNew(t *testing.T) {
	created, err := New("  plan sprint  ", StatusUrgentImportant)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if created.Title != "plan sprint" {
		t.Errorf("expected trimmed title, got %q", created.Title)
	}
	if created.ID == "" || !strings.HasPrefix(created.ID, "task-") {
		t.Errorf("unexpected ID %q", created.ID)
	}
	if created.Status != StatusUrgentImportant {
		t.Errorf("unexpected status %s", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps set")
	}

	if _, err := New("", StatusUncategorized); err == nil {
		t.Error("expected empty title rejected")
	}
	if _, err := New("x", Status("bogus")); err == nil {
		t.Error("expected unknown status rejected")
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestCloneIsDeep(t *testing.T) {
	done := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	original := Task{
		ID:          "t1",
		Title:       "a",
		Status:      StatusCompleted,
		CompletedAt: &done,
	}
	clone := original.Clone()

	*clone.CompletedAt = clone.CompletedAt.Add(time.Hour)
	if !original.CompletedAt.Equal(done) {
		t.Error("mutating the clone's CompletedAt must not touch the original")
	}
}

func TestCompleted(t *testing.T) {
	if (&Task{Status: StatusUrgentImportant}).Completed() {
		t.Error("active task must not report completed")
	}
	if !(&Task{Status: StatusCompleted}).Completed() {
		t.Error("completed status must report completed")
	}
}
