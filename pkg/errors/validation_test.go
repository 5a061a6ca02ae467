package errors

import (
	"strings"
	"testing"
)

func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "main", false},
		{"remote", "origin/feature/login", false},
		{"unicode", "feature/größe", false},

		{"empty", "", true},
		{"newline", "main\n", true},
		{"null byte", "ma\x00in", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranchName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBranchName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeMalformedSnapshot) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeMalformedSnapshot)
			}
		})
	}
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name     string
		min, max int64
		wantErr  bool
	}{
		{"ordered", 100, 200, false},
		{"degenerate", 100, 100, false},
		{"inverted", 200, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWindow(%d, %d) error = %v, wantErr %v", tt.min, tt.max, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "repositories/git-way", false},
		{"absolute", "/var/lib/gitway", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 501), true},
		{"null byte", "repo\x00", true},
		{"tab", "repo\tdir", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"http://localhost:8080", false},
		{"https://gitway.example.com", false},
		{"", true},
		{"ftp://example.com", true},
		{"localhost:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRepositoryURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://github.com/PaulFarver/git-way", false},
		{"git@github.com:PaulFarver/git-way.git", false},
		{"/srv/repos/app.git", false},
		{"", true},
		{"https://example.com/a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateRepositoryURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRepositoryURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
