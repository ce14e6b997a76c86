package space

import "testing"

func TestSpace_IsValid(t *testing.T) {
	tests := []struct {
		s    Space
		want bool
	}{
		{Clip, true},
		{Text, true},
		{"image", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := tc.s.IsValid(); got != tc.want {
			t.Errorf("Space(%q).IsValid() = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestSpace_Field(t *testing.T) {
	if Clip.Field() != "vec_clip" || Text.Field() != "vec_text" {
		t.Errorf("unexpected fields: %q %q", Clip.Field(), Text.Field())
	}
}
