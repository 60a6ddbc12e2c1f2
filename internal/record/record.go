// Package record turns listener events into timestamped records shared by the
// printer, the hooks and the websocket server.
package record

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lucax88x/deskwatch/internal/clock"
	"github.com/lucax88x/deskwatch/internal/shell"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"github.com/lucax88x/deskwatch/internal/vdesktop/events"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Record struct {
	Type events.Event `json:"type"`
	Time time.Time    `json:"time"`
	Info any          `json:"info"`
}

type ProcessResolver interface {
	WindowProcess(hwnd vdesktop.HWND) (shell.Process, error)
}

type Builder struct {
	logger    *slog.Logger
	clock     clock.Clock
	processes ProcessResolver
}

func NewBuilder(logger *slog.Logger, clock clock.Clock, processes ProcessResolver) *Builder {
	return &Builder{
		logger,
		clock,
		processes,
	}
}

// Build stamps e with the current time. Window events are enriched with the
// owning process when it can be resolved.
func (b *Builder) Build(e vdesktop.Event) Record {
	info := e.Info()

	if w, ok := e.(vdesktop.WindowChanged); ok && b.processes != nil && w.Window != 0 {
		windowInfo, _ := info.(events.WindowChangeEventInfo)

		process, err := b.processes.WindowProcess(w.Window)
		if err != nil {
			b.logger.Debug(
				"record: could not resolve window process",
				slog.String("window", w.Window.String()),
				slog.Any("error", err),
			)
		} else {
			windowInfo.Pid = process.Pid
			windowInfo.Process = process.Name
		}

		info = windowInfo
	}

	return Record{
		Type: e.Name(),
		Time: b.clock.Now(),
		Info: info,
	}
}

func (r Record) JSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("record: could not marshal %s: %w", r.Type, err)
	}
	return data, nil
}

func (r Record) Text() string {
	prefix := r.Time.Format(clock.Time) + " " + r.Type

	switch info := r.Info.(type) {
	case events.DesktopEventInfo:
		return fmt.Sprintf("%s index=%d", prefix, info.Index)
	case events.DesktopChangeEventInfo:
		return fmt.Sprintf("%s old=%d new=%d", prefix, info.Old, info.New)
	case events.WindowChangeEventInfo:
		line := fmt.Sprintf("%s window=0x%X", prefix, info.Window)
		if info.Process != "" {
			line += fmt.Sprintf(" pid=%d process=%s", info.Pid, info.Process)
		}
		return line
	default:
		return fmt.Sprintf("%s %v", prefix, info)
	}
}

// Write prints r as a single line in the given format.
func Write(w io.Writer, format string, r Record) error {
	switch format {
	case FormatJSON:
		data, err := r.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatText, "":
		_, err := fmt.Fprintln(w, r.Text())
		return err
	default:
		return fmt.Errorf("record: unknown format %q", format)
	}
}

func ValidFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}
