package session

import "testing"

func TestParseOAuthFragment(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
		wantErr  bool
	}{
		{
			name:     "full implicit flow fragment",
			fragment: "#access_token=ya29.abc&token_type=Bearer&expires_in=3599",
			want:     "ya29.abc",
		},
		{
			name:     "without leading hash",
			fragment: "access_token=tok123",
			want:     "tok123",
		},
		{
			name:     "missing access token",
			fragment: "#token_type=Bearer&expires_in=3599",
			wantErr:  true,
		},
		{
			name:     "empty fragment",
			fragment: "",
			wantErr:  true,
		},
		{
			name:     "malformed query",
			fragment: "#access_token=a%zz",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOAuthFragment(tt.fragment)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOAuthFragment(%q) succeeded, want error", tt.fragment)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOAuthFragment(%q) failed: %v", tt.fragment, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
