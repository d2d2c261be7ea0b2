package config

import "os"

func IsDebug() bool {
	return os.Getenv("HEALTHMEM_DEBUG") == "1"
}
