package config

import (
	"os"
	"sync"
)

var (
	dockerOnce   sync.Once
	dockerResult bool
)

func runningInDocker() bool {
	dockerOnce.Do(func() {
		// /.dockerenv exists in all Docker containers.
		_, err := os.Stat("/.dockerenv")
		dockerResult = err == nil
	})
	return dockerResult
}

// ResolveDockerHost rewrites loopback addresses to host.docker.internal when
// the process itself runs inside a container, so connections to services on
// the host machine (Postgres, Redis) still resolve. Non-loopback hosts are
// returned unchanged.
func ResolveDockerHost(host string) string {
	if !runningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
