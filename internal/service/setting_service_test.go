package service

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"
)

func TestProgramCostSettingDefaultsToZero(t *testing.T) {
	env := newTestEnv(t)
	setting, err := env.settings.GetProgramCostSetting()
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if len(setting.CostMilheiroCents) != len(constants.Programs) {
		t.Fatalf("expected every program, got %v", setting.CostMilheiroCents)
	}
	for _, program := range constants.Programs {
		if setting.CostFor(program) != 0 {
			t.Fatalf("expected zero default for %s", program)
		}
	}
}

func TestProgramCostSettingRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	updated, err := env.settings.UpdateProgramCostSetting(ProgramCostSetting{
		CostMilheiroCents: map[string]int64{" latam ": 1700, "azul": 1400},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.CostFor(constants.ProgramLatam) != 1700 || updated.CostFor(constants.ProgramSmiles) != 0 {
		t.Fatalf("unexpected normalized setting: %v", updated.CostMilheiroCents)
	}

	loaded, err := env.settings.GetProgramCostSetting()
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if loaded.CostFor("latam") != 1700 || loaded.CostFor(constants.ProgramAzul) != 1400 || loaded.CostFor(constants.ProgramTap) != 0 {
		t.Fatalf("unexpected stored setting: %v", loaded.CostMilheiroCents)
	}
}

func TestProgramCostSettingRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.settings.UpdateProgramCostSetting(ProgramCostSetting{CostMilheiroCents: map[string]int64{"gol": 10}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown program to be rejected, got %v", err)
	}
	if _, err := env.settings.UpdateProgramCostSetting(ProgramCostSetting{CostMilheiroCents: map[string]int64{"TAP": -1}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected negative cost to be rejected, got %v", err)
	}
}

func TestProgramCostSettingFromJSONSkipsBadValues(t *testing.T) {
	raw := models.JSON{
		"cost_milheiro_cents": map[string]interface{}{
			"LATAM":  float64(1800),
			"SMILES": "1500",
			"AZUL":   12.5,
			"TAP":    float64(-3),
			"GOL":    float64(99),
		},
	}
	got := programCostSettingFromJSON(raw, ProgramCostDefaultSetting())
	if got.CostFor(constants.ProgramLatam) != 1800 || got.CostFor(constants.ProgramSmiles) != 1500 {
		t.Fatalf("unexpected parsed costs: %v", got.CostMilheiroCents)
	}
	if got.CostFor(constants.ProgramAzul) != 0 || got.CostFor(constants.ProgramTap) != 0 {
		t.Fatalf("fractional and negative costs must be ignored: %v", got.CostMilheiroCents)
	}
	if _, ok := got.CostMilheiroCents["GOL"]; ok {
		t.Fatalf("unknown program must be dropped")
	}
}

func TestParseSettingCents(t *testing.T) {
	cases := []struct {
		value interface{}
		want  int64
		ok    bool
	}{
		{int(5), 5, true},
		{int64(7), 7, true},
		{float64(9), 9, true},
		{json.Number("11"), 11, true},
		{" 13 ", 13, true},
		{float64(1.5), 0, false},
		{"", 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, err := parseSettingCents(tc.value)
		if (err == nil) != tc.ok || (tc.ok && got != tc.want) {
			t.Fatalf("parse %v: got %d err=%v", tc.value, got, err)
		}
	}
}

func TestProgramCostSettingResetRestoresDefaults(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.settings.UpdateProgramCostSetting(ProgramCostSetting{
		CostMilheiroCents: map[string]int64{"latam": 1700},
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	reset, err := env.settings.ResetProgramCostSetting()
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if reset.CostFor(constants.ProgramLatam) != 0 {
		t.Fatalf("expected default cost after reset, got %v", reset.CostMilheiroCents)
	}
	loaded, err := env.settings.GetProgramCostSetting()
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if loaded.CostFor(constants.ProgramLatam) != 0 {
		t.Fatalf("expected stored setting cleared, got %v", loaded.CostMilheiroCents)
	}
	if _, err := env.settings.ResetProgramCostSetting(); err != nil {
		t.Fatalf("reset without stored value failed: %v", err)
	}
}
