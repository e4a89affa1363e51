package deps

import (
	"testing"

	"scribe/internal/testsupport"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "shell", Command: "sh"},
		{Name: "ghost", Command: "definitely-not-a-binary-xyz"},
		{Name: "blank", Command: "  "},
	})
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses", len(statuses))
	}
	if !statuses[0].Available {
		t.Fatalf("sh unavailable: %+v", statuses[0])
	}
	if statuses[1].Available {
		t.Fatal("nonexistent binary reported available")
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("blank command status = %+v", statuses[2])
	}
}

func TestForConfigCaptionsEngineRelaxesWhisper(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEngine("captions"))
	requirements := ForConfig(cfg)

	byName := map[string]Requirement{}
	for _, req := range requirements {
		byName[req.Name] = req
	}
	if byName["yt-dlp"].Optional {
		t.Fatal("yt-dlp must always be required")
	}
	if !byName["whisper"].Optional {
		t.Fatal("whisper should be optional for the captions engine")
	}

	cfg = testsupport.NewConfig(t, testsupport.WithEngine("auto"))
	for _, req := range ForConfig(cfg) {
		if req.Name == "whisper" && req.Optional {
			t.Fatal("whisper must be required when auto may fall back to it")
		}
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Available: false, Optional: true},
		{Name: "c", Available: false},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("missing = %+v", missing)
	}
}
