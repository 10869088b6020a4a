package components

import "testing"

func TestCaseStyle(t *testing.T) {
	tests := []struct {
		in    string
		style Style
		want  string
	}{
		{"TestString", Snake, "test_string"},
		{"TestString", Kebab, "test-string"},
		{"testString", Camel, "testString"},
		{"test_string", Pascal, "TestString"},
		{"Test-String", Snake, "test_string"},
		{"Test--String", Snake, "test_string"},
		{"__Test__String__", Snake, "test_string"},
		{"UserAccount", Snake, "user_account"},
		{"user_account", Camel, "userAccount"},
		{"user-account", Pascal, "UserAccount"},
		{"X", Snake, "x"},
		{"", Snake, ""},
	}

	for _, tt := range tests {
		if got := CaseStyle(tt.in, tt.style); got != tt.want {
			t.Errorf("CaseStyle(%q, %s) = %q, want %q", tt.in, tt.style, got, tt.want)
		}
	}
}

func TestCaseStyle_IdempotentProjection(t *testing.T) {
	inputs := []string{"TestString", "already_snake", "kebab-case", "camelCase", "Mixed-Bag_of_Things"}
	styles := []Style{Snake, Kebab, Camel, Pascal}

	for _, in := range inputs {
		for _, style := range styles {
			once := CaseStyle(in, style)
			twice := CaseStyle(once, style)
			if once != twice {
				t.Errorf("CaseStyle(%q, %s): not idempotent, %q != %q", in, style, once, twice)
			}
		}
	}
}

func TestCaseStyle_Cached(t *testing.T) {
	a := CaseStyle("CacheProbe", Snake)
	b := CaseStyle("CacheProbe", Snake)
	if a != b {
		t.Fatalf("cached result mismatch: %q != %q", a, b)
	}
}
