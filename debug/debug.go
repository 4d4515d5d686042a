package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Guard    bool
	Registry bool
	XPath    bool
	Parse    bool
}

var d *debug

func init() {
	d = &debug{}
	d.Guard = boolEnv("XH_DEBUG_GUARD")
	d.Registry = boolEnv("XH_DEBUG_REGISTRY")
	d.XPath = boolEnv("XH_DEBUG_XPATH")
	d.Parse = boolEnv("XH_DEBUG_PARSE")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Guard() bool {
	return d.Guard
}
func Registry() bool {
	return d.Registry
}
func XPath() bool {
	return d.XPath
}
func Parse() bool {
	return d.Parse
}
