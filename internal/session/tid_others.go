//go:build !linux

package session

func gettid() int {
	return 0
}
