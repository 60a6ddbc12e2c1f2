//go:build windows

package shell

import (
	"fmt"

	"github.com/lucax88x/deskwatch/internal/vdesktop"
	"golang.org/x/sys/windows"
)

func (s *Shell) WindowProcess(hwnd vdesktop.HWND) (Process, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return Process{}, fmt.Errorf("shell: owner of window %s: %w", hwnd, err)
	}

	name, err := processName(pid)
	if err != nil {
		return Process{Pid: pid}, err
	}
	return Process{Pid: pid, Name: name}, nil
}
