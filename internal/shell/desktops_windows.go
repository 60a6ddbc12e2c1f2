//go:build windows

package shell

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

// enumerateDesktops lists desktops through IVirtualDesktopManagerInternal.
func enumerateDesktops(manager uintptr) ([]vdesktop.DesktopID, error) {
	var array uintptr
	r, _, _ := syscall.SyscallN(vtableMethod(manager, slotGetDesktops), manager, uintptr(unsafe.Pointer(&array)))
	if hr := hresult(r); hr.Failed() {
		return nil, fmt.Errorf("shell: get desktops: %w", hr)
	}
	defer release(array)

	var count uint32
	r, _, _ = syscall.SyscallN(vtableMethod(array, slotArrayGetCount), array, uintptr(unsafe.Pointer(&count)))
	if hr := hresult(r); hr.Failed() {
		return nil, fmt.Errorf("shell: desktop count: %w", hr)
	}

	desktops := make([]vdesktop.DesktopID, 0, count)
	for i := uint32(0); i < count; i++ {
		var desktop uintptr
		r, _, _ = syscall.SyscallN(
			vtableMethod(array, slotArrayGetAt),
			array,
			uintptr(i),
			uintptr(unsafe.Pointer(iidVirtualDesktop)),
			uintptr(unsafe.Pointer(&desktop)),
		)
		if hr := hresult(r); hr.Failed() {
			return nil, fmt.Errorf("shell: desktop %d: %w", i, hr)
		}

		id, err := comDesktop(desktop).ID()
		release(desktop)
		if err != nil {
			return nil, err
		}
		desktops = append(desktops, id)
	}

	return desktops, nil
}
