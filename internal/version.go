package internal

import "fmt"

var (
	version  = "0.9.0"
	revision = ""
)

func Version() string {
	if revision != "" {
		return fmt.Sprintf("%s (%s)", version, revision)
	}
	return version
}
