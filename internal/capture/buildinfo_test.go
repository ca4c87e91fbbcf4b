package capture

import "testing"

func TestParseWindowsBuild(t *testing.T) {
	cases := []struct {
		version string
		want    int
	}{
		{"10.0.19045 Build 19045", 19045},
		{"10.0.22621", 22621},
		{"10.0.17134", 17134},
		{"Build 26100", 26100},
		{"", 0},
		{"garbage", 0},
		{"10.0", 0},
	}
	for _, tc := range cases {
		if got := parseWindowsBuild(tc.version); got != tc.want {
			t.Errorf("parseWindowsBuild(%q) = %d, want %d", tc.version, got, tc.want)
		}
	}
}
