package tray

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/translive/internal/audio"
	"github.com/petems/translive/internal/config"
	"github.com/petems/translive/internal/session"
	"github.com/petems/translive/internal/transcript"
	"github.com/rs/zerolog"
)

type UI struct {
	manager    *session.Manager
	cfg        *config.Config
	transcript *transcript.Log
	version    string
	commit     string
	log        zerolog.Logger

	// Menu items
	mStartStop *systray.MenuItem
	mMics      *systray.MenuItem
	mOutputs   *systray.MenuItem
	mVoices    *systray.MenuItem
}

// Status update methods for the session manager to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
	u.setStartStopTitle("Start Translation")
}

func (u *UI) SetConnecting() {
	u.updateStatus("connecting")
	u.setStartStopTitle("Stop Translation")
}

func (u *UI) SetActive() {
	u.updateStatus("active")
	u.setStartStopTitle("Stop Translation")
}

func (u *UI) SetError(msg string) {
	u.updateStatus("error")
	u.setStartStopTitle("Start Translation")
	systray.SetTooltip(fmt.Sprintf("Error: %s", msg))
}

// SetLevel shows the capture level as a small bar meter in the tooltip.
func (u *UI) SetLevel(level float64) {
	systray.SetTooltip(fmt.Sprintf("Mic level: %s", levelBar(level)))
}

func New(manager *session.Manager, cfg *config.Config, log *transcript.Log, version, commit string) *UI {
	return &UI{
		manager:    manager,
		cfg:        cfg,
		transcript: log,
		version:    version,
		commit:     commit,
		log:        zerolog.Nop(),
	}
}

// SetManager sets the session manager reference (for circular dependency resolution)
func (u *UI) SetManager(manager *session.Manager) {
	u.manager = manager
}

// SetLogger replaces the no-op logger.
func (u *UI) SetLogger(log zerolog.Logger) {
	u.log = log
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Live voice translation")

	// Build menu
	u.mStartStop = systray.AddMenuItem("Start Translation", "Start or stop the translation session")
	systray.AddSeparator()

	u.mMics = systray.AddMenuItem("Microphone", "Select input device")
	u.buildDeviceMenu(u.mMics, u.manager.ListInputDevices, u.cfg.Audio.InputDeviceID, u.manager.SetInputDevice)

	u.mOutputs = systray.AddMenuItem("Output Device", "Select playback device")
	u.buildDeviceMenu(u.mOutputs, u.manager.ListOutputDevices, u.cfg.Audio.OutputDeviceID, u.manager.SetOutputDevice)

	u.mVoices = systray.AddMenuItem("Voice", "Select translation voice")
	u.buildVoiceMenu()

	systray.AddSeparator()
	mSave := systray.AddMenuItem("Save Transcript", "Save the transcript to a file")
	mCopy := systray.AddMenuItem("Copy Transcript", "Copy the transcript to the clipboard")
	mClear := systray.AddMenuItem("Clear Transcript", "Discard the transcript")

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About Translive")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mSave, mCopy, mClear, mAbout, mQuit)
}

func (u *UI) handleEvents(mSave, mCopy, mClear, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleSession()
		case <-mSave.ClickedCh:
			u.saveTranscript()
		case <-mCopy.ClickedCh:
			u.copyTranscript()
		case <-mClear.ClickedCh:
			u.transcript.Clear()
			u.log.Info().Msg("Cleared transcript")
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			u.manager.Stop()
			systray.Quit()
			return
		}
	}
}

// toggleSession mirrors the single start/stop affordance: starting while a
// session is running stops it.
func (u *UI) toggleSession() {
	if u.manager.IsRunning() {
		u.manager.Stop()
		return
	}
	if err := u.manager.Start(); err != nil {
		u.log.Error().Err(err).Msg("Failed to start session")
	}
}

func (u *UI) buildDeviceMenu(parent *systray.MenuItem, list func() ([]audio.Device, error), selected string, apply func(string) error) {
	devices, err := list()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := parent.AddSubMenuItem(dev.Name, "")
		if dev.ID == selected || (selected == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
				if err := apply(deviceID); err != nil {
					u.log.Error().Err(err).Msg("Failed to change device")
					continue
				}
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) buildVoiceMenu() {
	voices := []string{"aura", "breeze", "cove", "ember"}
	voiceItems := make(map[string]*systray.MenuItem)

	for _, voice := range voices {
		item := u.mVoices.AddSubMenuItem(voice, "")
		if voice == u.cfg.Service.Voice {
			item.Check()
		}
		voiceItems[voice] = item

		go func(v string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				for name, itm := range voiceItems {
					if name != v {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				oldVoice := u.cfg.Service.Voice
				u.cfg.Service.Voice = v
				u.cfg.Save()
				u.log.Info().Str("from", oldVoice).Str("to", v).Msg("Changed voice")
			}
		}(voice, item)
	}
}

func (u *UI) saveTranscript() {
	if u.transcript.Len() == 0 {
		u.log.Info().Msg("Nothing to save")
		return
	}

	dir := config.DataPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		u.log.Error().Err(err).Msg("Failed to create transcript directory")
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("transcript-%s.txt", time.Now().Format("2006-01-02-150405")))
	f, err := os.Create(path)
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to create transcript file")
		return
	}
	defer f.Close()

	if _, err := u.transcript.WriteTo(f); err != nil {
		u.log.Error().Err(err).Msg("Failed to write transcript")
		return
	}
	u.log.Info().Str("path", path).Msg("Saved transcript")
}

func (u *UI) copyTranscript() {
	if err := clipboard.WriteAll(u.transcript.String()); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy transcript")
		return
	}
	u.log.Info().Msg("Copied transcript to clipboard")
}

func (u *UI) showAbout() {
	fmt.Printf("Translive %s (%s)\nLive voice translation\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}

// updateStatus sets the tray title with globe emoji and status indicator
func (u *UI) updateStatus(status string) {
	emoji := emojiForStatus(status)
	systray.SetTitle(fmt.Sprintf("🌐 %s", emoji))
}

func (u *UI) setStartStopTitle(title string) {
	if u.mStartStop != nil {
		u.mStartStop.SetTitle(title)
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "connecting":
		return "🟡" // Yellow - waiting for the service
	case "active":
		return "🔴" // Red - live microphone
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

// levelBar renders a 10-segment meter for the tooltip.
func levelBar(level float64) string {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	filled := int(level * 10)
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
