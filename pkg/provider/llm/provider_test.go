package llm

import "testing"

func TestTruncateAtStop(t *testing.T) {
	tests := []struct {
		name string
		in   string
		stop []string
		want string
	}{
		{"no stops", "hello world", nil, "hello world"},
		{"stop absent", "hello world", []string{"###"}, "hello world"},
		{"single stop", "hello\n\nextra", []string{"\n\n"}, "hello"},
		{"earliest stop wins", "a END b STOP c", []string{"STOP", "END"}, "a "},
		{"empty stop ignored", "hello", []string{""}, "hello"},
		{"stop at start", "END hello", []string{"END"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateAtStop(tt.in, tt.stop); got != tt.want {
				t.Errorf("TruncateAtStop(%q, %v) = %q, want %q", tt.in, tt.stop, got, tt.want)
			}
		})
	}
}
