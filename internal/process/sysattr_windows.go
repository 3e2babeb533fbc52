//go:build windows

package process

import "syscall"

// Creation flags from the Windows API not exposed by package syscall.
const (
	createNoWindow  = 0x08000000
	detachedProcess = 0x00000008
)

// DetachedSysProcAttr returns attributes that start a child detached from
// our console so it survives the parent exiting.
func DetachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: detachedProcess | createNoWindow,
	}
}

// HiddenWindowSysProcAttr returns attributes that suppress the console
// window a spawned tool would otherwise flash up.
func HiddenWindowSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: createNoWindow,
		HideWindow:    true,
	}
}
