//go:build unix

package api

import "golang.org/x/sys/unix"

func checkWritableDir(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
