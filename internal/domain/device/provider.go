package device

import (
	"fmt"
	"os"
	"runtime"
	"sync"
)

// Provider produces a descriptive string for the current runtime session
type Provider interface {
	DeviceInfo() string
}

// RuntimeProvider computes the device descriptor once from the host
// environment and returns the same value for the process lifetime
type RuntimeProvider struct {
	appVersion string

	once sync.Once
	info string
}

// NewRuntimeProvider creates a provider stamped with the app version
func NewRuntimeProvider(appVersion string) *RuntimeProvider {
	return &RuntimeProvider{appVersion: appVersion}
}

// DeviceInfo returns the device descriptor for this session
func (p *RuntimeProvider) DeviceInfo() string {
	p.once.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		p.info = fmt.Sprintf("%s/%s %s host/%s app/%s",
			runtime.GOOS, runtime.GOARCH, runtime.Version(), hostname, p.appVersion)
	})
	return p.info
}
