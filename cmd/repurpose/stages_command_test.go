package main

import (
	"encoding/json"
	"testing"
)

func TestStagesListsTableInOrder(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stages", "--json"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	var rows []stageRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode stages: %v", err)
	}
	if len(rows) != 9 {
		t.Fatalf("expected 9 stages, got %d", len(rows))
	}
	if rows[0].ID != "linkedin" || rows[0].Mode != "foreground" {
		t.Fatalf("expected linkedin first in foreground, got %+v", rows[0])
	}
	for _, row := range rows {
		if row.ID == "audio" && row.After != "linkedin" {
			t.Fatalf("expected audio to run after linkedin, got %q", row.After)
		}
	}

	out, _, err = runCLI(t, []string{"stages"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("stages table: %v", err)
	}
	requireContains(t, out, "newsletter")
}
