package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestProfileFromUser(t *testing.T) {
	from := &tgbotapi.User{
		ID:           1001,
		UserName:     "alice",
		FirstName:    "Alice",
		LastName:     "Liddell",
		LanguageCode: "en",
		IsBot:        false,
	}

	profile := profileFromUser(from)
	if profile.Username != "alice" || profile.FirstName != "Alice" || profile.LastName != "Liddell" {
		t.Fatalf("names not mapped: %+v", profile)
	}
	if profile.LanguageCode != "en" {
		t.Fatalf("language not mapped: %+v", profile)
	}
	// The pinned transport library cannot report the premium flag, so
	// the profile must carry its zero value.
	if profile.IsPremium {
		t.Fatalf("premium flag should default to false: %+v", profile)
	}
}

func TestParseTargetAndAmount(t *testing.T) {
	cases := []struct {
		args     string
		targetID int64
		amount   int
		wantErr  bool
	}{
		{args: "1001 5", targetID: 1001, amount: 5},
		{args: "  1001   -3  ", targetID: 1001, amount: -3},
		{args: "1001", wantErr: true},
		{args: "1001 5 extra", wantErr: true},
		{args: "abc 5", wantErr: true},
		{args: "-1 5", wantErr: true},
		{args: "1001 x", wantErr: true},
		{args: "", wantErr: true},
	}

	for _, tc := range cases {
		targetID, amount, err := parseTargetAndAmount(tc.args)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTargetAndAmount(%q) succeeded, want error", tc.args)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTargetAndAmount(%q): %v", tc.args, err)
			continue
		}
		if targetID != tc.targetID || amount != tc.amount {
			t.Errorf("parseTargetAndAmount(%q) = (%d, %d), want (%d, %d)", tc.args, targetID, amount, tc.targetID, tc.amount)
		}
	}
}
