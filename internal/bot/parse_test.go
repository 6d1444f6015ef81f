package bot

import "testing"

func TestParseAddArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         string
		wantURL      string
		wantInterval int
		wantErr      bool
	}{
		{"url only defaults interval", "https://example.com/rss", "https://example.com/rss", 30, false},
		{"url and interval", "https://example.com/rss 15", "https://example.com/rss", 15, false},
		{"empty", "", "", 0, true},
		{"non-numeric interval", "https://example.com/rss soon", "", 0, true},
		{"interval too small", "https://example.com/rss 0", "", 0, true},
		{"interval too large", "https://example.com/rss 2000", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, interval, err := ParseAddArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if url != tt.wantURL || interval != tt.wantInterval {
				t.Errorf("got (%q, %d), want (%q, %d)", url, interval, tt.wantURL, tt.wantInterval)
			}
		})
	}
}

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{"plain id", "42", 42, false},
		{"id with trailing words", "42 whatever", 42, false},
		{"padded", "  7  ", 7, false},
		{"empty", "", 0, true},
		{"not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDArg(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseRenameArgs(t *testing.T) {
	id, name, err := ParseRenameArgs("3 My Feed Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 3 || name != "My Feed Name" {
		t.Errorf("got (%d, %q), want (3, %q)", id, name, "My Feed Name")
	}

	for _, args := range []string{"", "3", "abc name", "3   "} {
		if _, _, err := ParseRenameArgs(args); err == nil {
			t.Errorf("ParseRenameArgs(%q): expected error", args)
		}
	}
}

func TestParseIntervalArgs(t *testing.T) {
	id, mins, err := ParseIntervalArgs("3 60")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 3 || mins != 60 {
		t.Errorf("got (%d, %d), want (3, 60)", id, mins)
	}

	for _, args := range []string{"", "3", "abc 60", "3 abc", "3 0", "3 9999"} {
		if _, _, err := ParseIntervalArgs(args); err == nil {
			t.Errorf("ParseIntervalArgs(%q): expected error", args)
		}
	}
}

func TestParseTermArgs(t *testing.T) {
	id, term, err := ParseTermArgs("5 machine learning")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 5 || term != "machine learning" {
		t.Errorf("got (%d, %q), want (5, %q)", id, term, "machine learning")
	}

	for _, args := range []string{"", "5", "abc word", "5   "} {
		if _, _, err := ParseTermArgs(args); err == nil {
			t.Errorf("ParseTermArgs(%q): expected error", args)
		}
	}
}

func TestParseOverrideArgs(t *testing.T) {
	id, token, chatID, err := ParseOverrideArgs("2 123456:ABC-token -1009876")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 2 || token != "123456:ABC-token" || chatID != -1009876 {
		t.Errorf("got (%d, %q, %d)", id, token, chatID)
	}

	for _, args := range []string{"", "2", "2 token", "abc token 100", "2 token abc"} {
		if _, _, _, err := ParseOverrideArgs(args); err == nil {
			t.Errorf("ParseOverrideArgs(%q): expected error", args)
		}
	}
}
