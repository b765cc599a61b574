package validation

import "testing"

func TestIsEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"a.b+c@sub.example.org", true},
		{"no-at-sign.com", false},
		{"user@nodot", false},
		{"with space@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsEmail(tt.email); got != tt.want {
				t.Errorf("IsEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	errs := NewValidationErrors()

	if errs.Required("name", "   ", "Name is required") {
		t.Error("blank value must fail Required")
	}
	if !errs.MaxLength("name", "short", 10) {
		t.Error("short value must pass MaxLength")
	}
	if errs.MaxLength("description", "this is too long", 4) {
		t.Error("long value must fail MaxLength")
	}
	if errs.Range("xpValue", 0, 1, 1000) {
		t.Error("0 must fail Range(1, 1000)")
	}
	if !errs.OneOf("frequency", "weekly", "daily", "weekly", "monthly") {
		t.Error("weekly must pass OneOf")
	}
	if errs.OneOf("frequency", "hourly", "daily", "weekly", "monthly") {
		t.Error("hourly must fail OneOf")
	}

	if got := errs.Count(); got != 4 {
		t.Errorf("expected 4 recorded errors, got %d", got)
	}
}
