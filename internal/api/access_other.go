//go:build !unix

package api

func checkWritableDir(string) error { return nil }
