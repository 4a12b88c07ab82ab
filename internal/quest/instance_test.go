package quest

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gitforged/server/internal/game"
)

type instData struct {
	ValueA int    `json:"value_a"`
	Name   string `json:"name"`
}

func instDef(version string) *Definition {
	return &Definition{
		Name:        "InstQuest",
		Version:     version,
		Description: "instance test quest",
		NewData:     func() any { return &instData{ValueA: 1} },
		Stages: map[string]Stage{
			"Start":  &BaseStage{Kids: []string{"Ending"}},
			"Ending": &TerminalStage{},
		},
	}
}

func testGame() *game.Game {
	return &game.Game{UserKey: "test:1234", ForkURL: "player/forge-fork", PlayerID: 99}
}

func TestInstanceKey(t *testing.T) {
	inst := NewInstance(instDef("1.0.0"), testGame())
	if inst.Key() != "test:1234:InstQuest" {
		t.Errorf("Key = %q, want test:1234:InstQuest", inst.Key())
	}
}

func TestInstanceRoundTrip(t *testing.T) {
	def := instDef("1.0.0")
	g := testGame()

	inst := NewInstance(def, g)
	inst.Data.(*instData).ValueA = 42
	inst.Data.(*instData).Name = "smith"
	inst.markCompleted("Start")
	inst.LastRun = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rec, err := inst.Record()
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.Version != "1.0.0" || rec.QuestName != "InstQuest" || rec.GameKey != "test:1234" {
		t.Errorf("Unexpected record header: %+v", rec)
	}

	loaded, err := LoadInstance(def, g, rec)
	if err != nil {
		t.Fatalf("LoadInstance failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Data, inst.Data) {
		t.Errorf("Data = %+v, want %+v", loaded.Data, inst.Data)
	}
	if !reflect.DeepEqual(loaded.Completed, inst.Completed) {
		t.Errorf("Completed = %v, want %v", loaded.Completed, inst.Completed)
	}
	if loaded.Complete != inst.Complete {
		t.Errorf("Complete = %v, want %v", loaded.Complete, inst.Complete)
	}
	if !loaded.CompletedStage("Start") || loaded.CompletedStage("Ending") {
		t.Error("Completed stage lookup does not match record")
	}
}

func TestLoadInstanceVersionGate(t *testing.T) {
	tests := []struct {
		name    string
		saved   string
		current string
		safe    bool
	}{
		{"patch upgrade", "1.1.1", "1.1.2", true},
		{"patch downgrade", "1.1.2", "1.1.1", true},
		{"minor upgrade", "1.1.1", "1.2.1", true},
		{"minor downgrade", "1.2.1", "1.1.1", false},
		{"major downgrade", "2.1.1", "1.1.1", false},
		{"major upgrade", "1.1.1", "2.1.1", false},
	}

	g := testGame()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := instDef(tt.current)
			rec, err := NewInstance(instDef(tt.saved), g).Record()
			if err != nil {
				t.Fatalf("Record failed: %v", err)
			}

			_, err = LoadInstance(def, g, rec)
			if tt.safe && err != nil {
				t.Errorf("Expected safe load, got %v", err)
			}
			if !tt.safe {
				var loadErr *LoadError
				if !errors.As(err, &loadErr) {
					t.Errorf("Expected LoadError, got %v", err)
				}
			}
		})
	}
}

func TestLoadInstanceMalformedData(t *testing.T) {
	def := instDef("1.0.0")
	g := testGame()

	rec, err := NewInstance(def, g).Record()
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	rec.SerializedData = `{"data": {"value_a": "not a number"`

	var loadErr *LoadError
	if _, err := LoadInstance(def, g, rec); !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError for malformed data, got %v", err)
	}
}

func TestLoadInstanceUnknownCompletedStage(t *testing.T) {
	def := instDef("1.0.0")
	g := testGame()

	rec, err := NewInstance(def, g).Record()
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	rec.CompletedStages = []string{"NeverDeclared"}

	var loadErr *LoadError
	if _, err := LoadInstance(def, g, rec); !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError for unknown completed stage, got %v", err)
	}
}
