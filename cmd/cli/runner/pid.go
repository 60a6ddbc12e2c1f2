package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

var ErrAlreadyRunning = errors.New("pidfile: another instance is running")

// CreatePidFile claims path for the current process. A stale file left by a
// process that no longer exists is overwritten.
func CreatePidFile(path string) error {
	pidBytes, err := os.ReadFile(path)

	switch {
	case err == nil:
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidBytes)))
		if err != nil {
			return fmt.Errorf("pidfile: could not parse pid: %w", err)
		}

		if pid != os.Getpid() {
			exists, err := process.PidExists(int32(pid))
			if err != nil {
				return fmt.Errorf("pidfile: could not check pid %d: %w", pid, err)
			}
			if exists {
				return fmt.Errorf("%w with pid %d", ErrAlreadyRunning, pid)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("pidfile: could not read pid file: %w", err)
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("pidfile: could not write pid file: %w", err)
	}

	return nil
}

func RemovePidFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("pidfile: could not remove pid file: %w", err)
	}
	return nil
}
