// Package shell connects to the Windows immersive shell: it activates the
// virtual desktop notification service, exposes the desktop list and maps
// windows to their owning process.
//
// Everything except process naming is Windows only; other platforms get
// ErrNotSupported from Open.
package shell

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

var ErrNotSupported = errors.New("shell: virtual desktops are only available on windows")

type Process struct {
	Pid  uint32
	Name string
}

func processName(pid uint32) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("shell: process %d: %w", pid, err)
	}

	name, err := p.Name()
	if err != nil {
		return "", fmt.Errorf("shell: process %d name: %w", pid, err)
	}
	return name, nil
}
