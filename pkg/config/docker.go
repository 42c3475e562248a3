package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps loopback hosts in a connection config to
// host.docker.internal when running in Docker, so a database on the host
// machine stays reachable. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	return rewriteLoopback(host, IsRunningInDocker())
}

// HostRewriter returns the rewrite applied to connection config hosts, or nil
// when rewriting is disabled.
func (c *DatasourceConfig) HostRewriter() func(string) string {
	if !c.RewriteDockerHosts {
		return nil
	}
	return ResolveHostForDocker
}

func rewriteLoopback(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return "host.docker.internal"
	}
	return host
}
