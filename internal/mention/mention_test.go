package mention

import "testing"

func TestMatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"leading mention", "<@U012345> hello", true},
		{"mention mid-text", "hello <@U012345> world", true},
		{"mention with label", "<@U012345|gptaro> hello", true},
		{"bare mention", "<@U012345>", true},
		{"no mention", "hello world", false},
		{"empty", "", false},
		{"lowercase id is not a mention", "<@u012345> hi", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(tc.text); got != tc.want {
				t.Fatalf("Matches(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"leading mention", "<@U012345> hello", "hello"},
		{"mention only", "<@U012345>", ""},
		{"mention and whitespace only", "<@U012345>   ", ""},
		{"multiple mentions", "<@U012345> hi <@U067890> there", "hi there"},
		{"mention with label", "<@U012345|gptaro> hello", "hello"},
		{"no mention keeps content", "  hello world  ", "hello world"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Strip(tc.text); got != tc.want {
				t.Fatalf("Strip(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestStripRemovesEveryMentionToken(t *testing.T) {
	t.Parallel()

	got := Strip("<@U012345> ask <@U067890> something")
	if Matches(got) {
		t.Fatalf("Strip left a mention token behind: %q", got)
	}
}
