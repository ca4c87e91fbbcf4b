//go:build !windows

package main

import "fmt"

func isWindowsService() bool { return false }

func runAsService(func() (*serverParts, error)) error {
	return fmt.Errorf("service mode is only supported on windows")
}
