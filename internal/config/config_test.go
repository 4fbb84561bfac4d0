package config

import "testing"

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "valid aerodrome config",
			env: map[string]string{
				"VERSION":         "v1.0.0",
				"NOTAM_API_URL":   "https://example.test/search",
				"AIRPORTS":        "EGLL,LFPG",
			},
			wantErr: false,
		},
		{
			name: "valid search config",
			env: map[string]string{
				"VERSION":       "v1.0.0",
				"NOTAM_API_URL": "https://example.test/search",
				"SEARCH_TERMS":  "drone,uas",
			},
			wantErr: false,
		},
		{
			name: "missing targets",
			env: map[string]string{
				"VERSION":       "v1.0.0",
				"NOTAM_API_URL": "https://example.test/search",
			},
			wantErr: true,
		},
		{
			name: "missing endpoint",
			env: map[string]string{
				"VERSION":  "v1.0.0",
				"AIRPORTS": "EGLL",
			},
			wantErr: true,
		},
		{
			name: "default version rejected",
			env: map[string]string{
				"NOTAM_API_URL": "https://example.test/search",
				"AIRPORTS":      "EGLL",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"VERSION", "NOTAM_API_URL", "AIRPORTS", "SEARCH_TERMS"} {
				t.Setenv(k, tt.env[k])
			}

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VERSION", "v1.0.0")
	t.Setenv("NOTAM_API_URL", "https://example.test/search")
	t.Setenv("AIRPORTS", "EGLL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.UpdateIntervalSeconds != 3600 {
		t.Errorf("UpdateIntervalSeconds = %d, want 3600", cfg.UpdateIntervalSeconds)
	}
	if cfg.ClosureScore != 50 {
		t.Errorf("ClosureScore = %d, want 50", cfg.ClosureScore)
	}
	if cfg.NtfyMinScore != 80 {
		t.Errorf("NtfyMinScore = %d, want 80", cfg.NtfyMinScore)
	}
	if cfg.Mode() != "aerodrome" {
		t.Errorf("Mode() = %s, want aerodrome", cfg.Mode())
	}
}

func TestLoad_DroneKeywordsLowercased(t *testing.T) {
	t.Setenv("VERSION", "v1.0.0")
	t.Setenv("NOTAM_API_URL", "https://example.test/search")
	t.Setenv("AIRPORTS", "EGLL")
	t.Setenv("DRONE_KEYWORDS", "DRONE,UAS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	want := []string{"drone", "uas"}
	if len(cfg.DroneKeywords) != len(want) {
		t.Fatalf("DroneKeywords = %v, want %v", cfg.DroneKeywords, want)
	}
	for i := range want {
		if cfg.DroneKeywords[i] != want[i] {
			t.Errorf("DroneKeywords[%d] = %s, want %s", i, cfg.DroneKeywords[i], want[i])
		}
	}
}
