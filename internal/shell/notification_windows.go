//go:build windows

package shell

import (
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/lucax88x/deskwatch/internal/vdesktop"
)

// notificationVtbl is the IVirtualDesktopNotification layout.
type notificationVtbl struct {
	queryInterface uintptr
	addRef         uintptr
	release        uintptr
	created        uintptr
	destroyBegin   uintptr
	destroyFailed  uintptr
	destroyed      uintptr
	viewChanged    uintptr
	currentChanged uintptr
}

// notificationObject is the COM object the shell holds. Its first word
// must be the vtable pointer.
type notificationObject struct {
	vtbl     *notificationVtbl
	listener *vdesktop.Listener
	pinner   runtime.Pinner
}

//nolint:gochecknoglobals // ok
var (
	vtableOnce sync.Once
	vtable     *notificationVtbl

	// liveObjects keeps every object the shell may still call reachable,
	// keyed by the address handed out.
	liveObjects sync.Map
)

func notificationVtable() *notificationVtbl {
	vtableOnce.Do(func() {
		vtable = &notificationVtbl{
			queryInterface: syscall.NewCallback(notificationQueryInterface),
			addRef:         syscall.NewCallback(notificationAddRef),
			release:        syscall.NewCallback(notificationRelease),
			created:        syscall.NewCallback(notificationCreated),
			destroyBegin:   syscall.NewCallback(notificationDestroyBegin),
			destroyFailed:  syscall.NewCallback(notificationDestroyFailed),
			destroyed:      syscall.NewCallback(notificationDestroyed),
			viewChanged:    syscall.NewCallback(notificationViewChanged),
			currentChanged: syscall.NewCallback(notificationCurrentChanged),
		}
	})
	return vtable
}

// newNotificationObject wraps listener in a pinned COM object. The object
// lives until the listener's reference count reaches zero.
func newNotificationObject(logger *slog.Logger, listener *vdesktop.Listener) *notificationObject {
	obj := &notificationObject{
		vtbl:     notificationVtable(),
		listener: listener,
	}
	obj.pinner.Pin(obj)

	addr := obj.addr()
	liveObjects.Store(addr, obj)

	listener.OnFinalRelease(func() {
		liveObjects.Delete(addr)
		obj.pinner.Unpin()
		logger.Debug("notification: object freed", slog.Uint64("addr", uint64(addr)))
	})

	return obj
}

func (o *notificationObject) addr() uintptr {
	return uintptr(unsafe.Pointer(o))
}

func objectAt(this uintptr) *notificationObject {
	v, ok := liveObjects.Load(this)
	if !ok {
		return nil
	}
	return v.(*notificationObject)
}

// invoke runs fn for the listener behind this and always reports success.
func invoke(this uintptr, fn func(*vdesktop.Listener) vdesktop.HRESULT) (ret uintptr) {
	defer func() {
		if r := recover(); r != nil {
			ret = fromHRESULT(vdesktop.SOK)
		}
	}()

	obj := objectAt(this)
	if obj == nil {
		return fromHRESULT(vdesktop.SOK)
	}
	fn(obj.listener)
	return fromHRESULT(vdesktop.SOK)
}

func notificationQueryInterface(this, riid, ppv uintptr) uintptr {
	if ppv == 0 {
		return fromHRESULT(vdesktop.EPointer)
	}
	out := (*uintptr)(unsafe.Pointer(ppv))

	obj := objectAt(this)
	iid := (*ole.GUID)(unsafe.Pointer(riid))
	if obj == nil || riid == 0 ||
		!(ole.IsEqualGUID(iid, ole.IID_IUnknown) || ole.IsEqualGUID(iid, iidVirtualDesktopNotification)) {
		*out = 0
		return fromHRESULT(vdesktop.ENoInterface)
	}

	obj.listener.AddRef()
	*out = this
	return fromHRESULT(vdesktop.SOK)
}

func notificationAddRef(this uintptr) uintptr {
	obj := objectAt(this)
	if obj == nil {
		return 0
	}
	return uintptr(obj.listener.AddRef())
}

func notificationRelease(this uintptr) uintptr {
	obj := objectAt(this)
	if obj == nil {
		return 0
	}
	return uintptr(obj.listener.Release())
}

func notificationCreated(this, desktop uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.VirtualDesktopCreated(comDesktop(desktop))
	})
}

func notificationDestroyBegin(this, destroyed, fallback uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.VirtualDesktopDestroyBegin(comDesktop(destroyed), comDesktop(fallback))
	})
}

func notificationDestroyFailed(this, destroyed, fallback uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.VirtualDesktopDestroyFailed(comDesktop(destroyed), comDesktop(fallback))
	})
}

func notificationDestroyed(this, destroyed, fallback uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.VirtualDesktopDestroyed(comDesktop(destroyed), comDesktop(fallback))
	})
}

func notificationViewChanged(this, view uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.ViewVirtualDesktopChanged(comView(view))
	})
}

func notificationCurrentChanged(this, oldDesktop, newDesktop uintptr) uintptr {
	return invoke(this, func(l *vdesktop.Listener) vdesktop.HRESULT {
		return l.CurrentVirtualDesktopChanged(comDesktop(oldDesktop), comDesktop(newDesktop))
	})
}

// notificationService wraps IVirtualDesktopNotificationService.
type notificationService struct {
	logger *slog.Logger
	ptr    uintptr
}

func (s *notificationService) Register(listener *vdesktop.Listener) (uint32, error) {
	obj := newNotificationObject(s.logger, listener)

	var cookie uint32
	r, _, _ := syscall.SyscallN(
		vtableMethod(s.ptr, slotRegister),
		s.ptr,
		uintptr(unsafe.Pointer(obj)),
		uintptr(unsafe.Pointer(&cookie)),
	)
	if hr := hresult(r); hr.Failed() {
		return 0, hr
	}
	return cookie, nil
}

func (s *notificationService) Unregister(cookie uint32) error {
	r, _, _ := syscall.SyscallN(vtableMethod(s.ptr, slotUnregister), s.ptr, uintptr(cookie))
	if hr := hresult(r); hr.Failed() {
		return hr
	}
	return nil
}

func (s *notificationService) AddRef() uint32 { return addRef(s.ptr) }

func (s *notificationService) Release() uint32 { return release(s.ptr) }

var _ vdesktop.NotificationService = (*notificationService)(nil)
