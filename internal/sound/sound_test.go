package sound

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testPlayer(t *testing.T) (*Player, *[]string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "alert.oga")
	if err := os.WriteFile(file, []byte("ogg"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewPlayer("player", file)
	p.gap = 0
	var calls []string
	p.start = func(name string, args ...string) error {
		calls = append(calls, name+" "+args[0])
		return nil
	}
	return p, &calls
}

func TestAlert_PlaysTwice(t *testing.T) {
	p, calls := testPlayer(t)

	if err := p.Alert(); err != nil {
		t.Fatalf("Alert: %v", err)
	}
	if len(*calls) != 2 {
		t.Fatalf("calls = %v, want 2", *calls)
	}
	if (*calls)[0] != "player "+p.file {
		t.Errorf("call = %q", (*calls)[0])
	}
}

func TestAlert_MissingFile(t *testing.T) {
	p, calls := testPlayer(t)
	p.file = filepath.Join(t.TempDir(), "missing.oga")

	if err := p.Alert(); err == nil {
		t.Error("expected error for missing sound file")
	}
	if len(*calls) != 0 {
		t.Errorf("player started without a sound file: %v", *calls)
	}
}

func TestAlert_StartFailure(t *testing.T) {
	p, _ := testPlayer(t)
	p.start = func(string, ...string) error { return errors.New("executable not found") }

	if err := p.Alert(); err == nil {
		t.Error("expected error when the player cannot start")
	}
}

func TestNewPlayer_Defaults(t *testing.T) {
	p := NewPlayer("", "")
	if p.command != DefaultPlayer || p.file != DefaultFile || p.repeats != 2 {
		t.Errorf("player = %+v", p)
	}
}
