//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package cli

func isTerminalFd(fd uintptr) bool { return false }
