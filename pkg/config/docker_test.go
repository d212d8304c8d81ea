package config

import (
	"testing"
)

func TestResolveDockerHost_NonLoopbackUnchanged(t *testing.T) {
	// Non-loopback hosts are never rewritten, regardless of where we run.
	tests := []string{
		"db.example.com",
		"192.168.1.100",
		"host.docker.internal",
	}

	for _, host := range tests {
		if got := ResolveDockerHost(host); got != host {
			t.Errorf("ResolveDockerHost(%q) = %q, want unchanged", host, got)
		}
	}
}

func TestResolveDockerHost_Loopback(t *testing.T) {
	// Loopback hosts are rewritten only when the process runs in Docker;
	// the detection result depends on the test environment.
	for _, host := range []string{"localhost", "127.0.0.1"} {
		got := ResolveDockerHost(host)
		if runningInDocker() {
			if got != "host.docker.internal" {
				t.Errorf("ResolveDockerHost(%q) in Docker = %q, want host.docker.internal", host, got)
			}
		} else {
			if got != host {
				t.Errorf("ResolveDockerHost(%q) outside Docker = %q, want unchanged", host, got)
			}
		}
	}
}
