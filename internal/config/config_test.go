package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MATCH_QUOTA", "")
	t.Setenv("SESSION_RETENTION_SECONDS", "")
	t.Setenv("PAYOUT_DRIVER", "")

	cfg := Load()

	if cfg.MatchQuota != 100 {
		t.Errorf("MatchQuota = %d, want 100", cfg.MatchQuota)
	}
	if cfg.SessionRetentionSeconds != 60 {
		t.Errorf("SessionRetentionSeconds = %d, want 60", cfg.SessionRetentionSeconds)
	}
	if cfg.PayoutDriver != "" {
		t.Errorf("PayoutDriver = %q, want empty", cfg.PayoutDriver)
	}
}

func TestLoadClampsQuota(t *testing.T) {
	t.Setenv("MATCH_QUOTA", "1")

	cfg := Load()

	if cfg.MatchQuota != MinQuota {
		t.Errorf("MatchQuota = %d, want %d", cfg.MatchQuota, MinQuota)
	}
}

func TestLoadParsesTypedValues(t *testing.T) {
	t.Setenv("MATCH_QUOTA", "4")
	t.Setenv("STRICT_WINNER_DECLARATION", "true")
	t.Setenv("ENTRY_FEE", "1.5")
	t.Setenv("PAYOUT_DRIVER", "NATS")
	t.Setenv("JOIN_RATE_LIMIT_SECONDS", "not-a-number")

	cfg := Load()

	if cfg.MatchQuota != 4 {
		t.Errorf("MatchQuota = %d, want 4", cfg.MatchQuota)
	}
	if !cfg.StrictWinnerDeclaration {
		t.Errorf("StrictWinnerDeclaration = false, want true")
	}
	if cfg.PayoutDriver != "nats" {
		t.Errorf("PayoutDriver = %q, want nats", cfg.PayoutDriver)
	}
	if cfg.JoinRateLimitSeconds != 0 {
		t.Errorf("JoinRateLimitSeconds = %d, want default 0", cfg.JoinRateLimitSeconds)
	}
	if got := cfg.TotalPot(); got != 6 {
		t.Errorf("TotalPot = %v, want 6", got)
	}
}
