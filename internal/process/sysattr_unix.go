//go:build !windows

package process

import "syscall"

// DetachedSysProcAttr returns attributes that start a child in its own
// session so it survives the parent exiting.
func DetachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// HiddenWindowSysProcAttr returns attributes that suppress any console
// window for a spawned tool. No-op outside Windows.
func HiddenWindowSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
