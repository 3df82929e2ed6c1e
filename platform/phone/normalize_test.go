package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(11) 99999-8888", "+5511999998888"},
		{"+5511999998888", "+5511999998888"},
		{"+1 212 555 0199", "+12125550199"},
		{"  +5511999998888  ", "+5511999998888"},
		{"not a number", "not a number"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.in); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
