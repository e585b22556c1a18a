package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LIBRISYS_TEST_MODE") == "" {
			_ = os.Setenv("LIBRISYS_TEST_MODE", "1")
		}
	})
}
