package bundle

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		glob string
		name string
		want bool
	}{
		{DefaultPattern, "App.xcodeproj", true},
		{DefaultPattern, ".xcodeproj", true},
		{DefaultPattern, "App.xcodeproj.bak", false},
		{DefaultPattern, "App.xcworkspace", false},
		{DefaultPattern, "xcodeproj", false},
		{DefaultPattern, "app.XCODEPROJ", false},
		{"*.xcodeproj", "My App (iOS).xcodeproj", true},
		{"?.proj", "A.proj", true},
		{"?.proj", "AB.proj", false},
		{"[AB]*.xcodeproj", "Basic.xcodeproj", true},
		{"[AB]*.xcodeproj", "Core.xcodeproj", false},
		{"[!T]*.xcodeproj", "Core.xcodeproj", true},
		{"[!T]*.xcodeproj", "Tests.xcodeproj", false},
		{"build.dir", "build.dir", true},
		{"build.dir", "buildxdir", false},
	}
	for _, tt := range tests {
		m, err := Compile(tt.glob)
		if err != nil {
			t.Fatalf("Compile(%q): %v", tt.glob, err)
		}
		if got := m.Match(tt.name); got != tt.want {
			t.Errorf("Compile(%q).Match(%q) = %v, want %v", tt.glob, tt.name, got, tt.want)
		}
	}
}

func TestCompile_Empty(t *testing.T) {
	if _, err := Compile(""); err == nil {
		t.Fatal("expected error for empty pattern")
	}
}

func TestCompile_Separator(t *testing.T) {
	if _, err := Compile("sub/*.xcodeproj"); err == nil {
		t.Fatal("expected error for pattern with separator")
	}
}

func TestString(t *testing.T) {
	m := MustCompile("*.pbproj")
	if m.String() != "*.pbproj" {
		t.Errorf("String() = %q, want %q", m.String(), "*.pbproj")
	}
}
