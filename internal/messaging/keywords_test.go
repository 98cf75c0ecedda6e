package messaging

import "testing"

func TestIsStopKeyword(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{"STOP", true},
		{"stop", true},
		{"  Stop  ", true},
		{"STOPALL", true},
		{"STOP ALL", true},
		{"UNSUBSCRIBE", true},
		{"unsubscribe all", true},
		{"CANCEL", true},
		{"END", true},
		{"QUIT", true},
		{"stop it", false},
		{"please stop texting me", false},
		{"STOPPED", false},
		{"", false},
		{"START", false},
	}
	for _, tc := range cases {
		if got := IsStopKeyword(tc.body); got != tc.want {
			t.Errorf("IsStopKeyword(%q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestIsStartKeyword(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{"START", true},
		{"start", true},
		{" Start ", true},
		{"UNSTOP", true},
		{"START ALL", false},
		{"restart", false},
		{"STOP", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsStartKeyword(tc.body); got != tc.want {
			t.Errorf("IsStartKeyword(%q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}
