package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Project", "my-project"},
		{"demo_project docs", "demo-project-docs"},
		{"Caltrops & Marbles", "caltrops-marbles"},
		{"Ünicode Nämes", "unicode-names"},
		{"  spaced  out  ", "spaced-out"},
		{"already-a-slug", "already-a-slug"},
		{"v2.0 (beta)", "v2-0-beta"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Make(c.in); got != c.want {
			t.Errorf("Make(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
