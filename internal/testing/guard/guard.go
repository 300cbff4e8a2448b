// Package guard flips the process into test mode as soon as a test binary
// imports it, so server entrypoints refuse to start mid-test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("KEYSTONE_TEST_MODE") == "" {
			_ = os.Setenv("KEYSTONE_TEST_MODE", "1")
		}
	})
}
