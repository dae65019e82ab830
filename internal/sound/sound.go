// Package sound plays the audible alert for newly identified matches.
package sound

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/rewired-gh/oddswatch/internal/logger"
)

// Defaults for desktop Linux with PulseAudio.
const (
	DefaultPlayer = "paplay"
	DefaultFile   = "/usr/share/sounds/freedesktop/stereo/complete.oga"
)

// Player starts an external audio player on the configured file.
type Player struct {
	command string
	file    string
	repeats int
	gap     time.Duration

	start func(name string, args ...string) error
}

// NewPlayer returns a player that plays file twice through command.
func NewPlayer(command, file string) *Player {
	if command == "" {
		command = DefaultPlayer
	}
	if file == "" {
		file = DefaultFile
	}
	return &Player{
		command: command,
		file:    file,
		repeats: 2,
		gap:     200 * time.Millisecond,
		start:   startDetached,
	}
}

// Alert starts the player without waiting for playback to finish.
func (p *Player) Alert() error {
	if _, err := os.Stat(p.file); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sound file not found: %s", p.file)
	}
	for i := 0; i < p.repeats; i++ {
		if i > 0 {
			time.Sleep(p.gap)
		}
		if err := p.start(p.command, p.file); err != nil {
			return fmt.Errorf("failed to start %s: %w", p.command, err)
		}
	}
	return nil
}

// startDetached starts the command and reaps it in the background.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("%s exited: %v", name, err)
		}
	}()
	return nil
}
