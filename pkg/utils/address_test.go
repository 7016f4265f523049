package utils

import "testing"

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", false},
		{"trimmed", "  So11111111111111111111111111111111111111112\n", "So11111111111111111111111111111111111111112", false},
		{"empty", "   ", "", true},
		{"too short", "abc", "", true},
		{"invalid char", "0ezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeAddress(%q) err=%v, wantErr=%v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
