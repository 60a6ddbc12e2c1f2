//go:build windows

package shell

import (
	"encoding/binary"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

// Windows 10 (1809 and later) interface identifiers.
//
//nolint:gochecknoglobals // ok
var (
	clsidImmersiveShell                  = ole.NewGUID("{C2F03A33-21F5-47FA-B4BB-156362A2F239}")
	clsidVirtualNotificationService      = ole.NewGUID("{A501FDEC-4A09-464C-AE4E-1B9C21B84918}")
	clsidVirtualDesktopManagerInternal   = ole.NewGUID("{C5E0CDCA-7B6E-41B2-9FC4-D93975CC467B}")
	iidServiceProvider                   = ole.NewGUID("{6D5140C1-7436-11CE-8034-00AA006009FA}")
	iidVirtualDesktopNotificationService = ole.NewGUID("{0CD45E71-D927-4F15-8B0A-8FEF525337BF}")
	iidVirtualDesktopNotification        = ole.NewGUID("{C179334C-4295-40D3-BEA1-C654D965605A}")
	iidVirtualDesktopManagerInternal     = ole.NewGUID("{F31574D6-B682-4CDC-BD56-1827860ABEC6}")
	iidVirtualDesktop                    = ole.NewGUID("{FF72FFDD-BE7E-43FC-9C03-AD81681E88E4}")
)

// vtable slots
const (
	slotQueryInterface = 0
	slotAddRef         = 1
	slotRelease        = 2

	slotQueryService = 3 // IServiceProvider

	slotRegister   = 3 // IVirtualDesktopNotificationService
	slotUnregister = 4

	slotGetDesktops = 7 // IVirtualDesktopManagerInternal

	slotArrayGetCount = 3 // IObjectArray
	slotArrayGetAt    = 4

	slotDesktopGetID = 4 // IVirtualDesktop

	slotViewGetThumbnailWindow = 9 // IApplicationView
)

// vtableMethod reads slot index from the vtable of the COM object at obj.
// obj is shell-owned memory, never a Go pointer.
func vtableMethod(obj uintptr, index int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

func addRef(obj uintptr) uint32 {
	r, _, _ := syscall.SyscallN(vtableMethod(obj, slotAddRef), obj)
	return uint32(r)
}

func release(obj uintptr) uint32 {
	if obj == 0 {
		return 0
	}
	r, _, _ := syscall.SyscallN(vtableMethod(obj, slotRelease), obj)
	return uint32(r)
}

func hresult(r uintptr) vdesktop.HRESULT {
	return vdesktop.HRESULT(int32(uint32(r)))
}

func fromHRESULT(hr vdesktop.HRESULT) uintptr {
	return uintptr(uint32(hr))
}

func queryService(provider uintptr, sid, iid *ole.GUID) (uintptr, error) {
	var out uintptr
	r, _, _ := syscall.SyscallN(
		vtableMethod(provider, slotQueryService),
		provider,
		uintptr(unsafe.Pointer(sid)),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	)
	if hr := hresult(r); hr.Failed() {
		return 0, fmt.Errorf("shell: query service %s: %w", sid, hr)
	}
	return out, nil
}

// desktopIDFromGUID converts the mixed-endian COM layout into the canonical
// byte order used by the textual form.
func desktopIDFromGUID(g *ole.GUID) vdesktop.DesktopID {
	var id vdesktop.DesktopID
	binary.BigEndian.PutUint32(id[0:4], g.Data1)
	binary.BigEndian.PutUint16(id[4:6], g.Data2)
	binary.BigEndian.PutUint16(id[6:8], g.Data3)
	copy(id[8:], g.Data4[:])
	return id
}

// comDesktop is a borrowed IVirtualDesktop pointer.
type comDesktop uintptr

func (d comDesktop) ID() (vdesktop.DesktopID, error) {
	if d == 0 {
		return vdesktop.DesktopID{}, fmt.Errorf("shell: nil desktop")
	}

	var guid ole.GUID
	r, _, _ := syscall.SyscallN(vtableMethod(uintptr(d), slotDesktopGetID), uintptr(d), uintptr(unsafe.Pointer(&guid)))
	if hr := hresult(r); hr.Failed() {
		return vdesktop.DesktopID{}, fmt.Errorf("shell: desktop id: %w", hr)
	}
	return desktopIDFromGUID(&guid), nil
}

// comView is a borrowed IApplicationView pointer.
type comView uintptr

func (v comView) ThumbnailWindow() (vdesktop.HWND, error) {
	if v == 0 {
		return 0, fmt.Errorf("shell: nil view")
	}

	var hwnd uintptr
	r, _, _ := syscall.SyscallN(vtableMethod(uintptr(v), slotViewGetThumbnailWindow), uintptr(v), uintptr(unsafe.Pointer(&hwnd)))
	if hr := hresult(r); hr.Failed() {
		return 0, fmt.Errorf("shell: thumbnail window: %w", hr)
	}
	return vdesktop.HWND(hwnd), nil
}
