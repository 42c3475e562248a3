package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteLoopback(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		want     string
	}{
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"::1", true, "host.docker.internal"},
		{"mydb.example.com", true, "mydb.example.com"},
		{"localhost", false, "localhost"},
		{"host.docker.internal", false, "host.docker.internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rewriteLoopback(tt.host, tt.inDocker), "host=%s docker=%v", tt.host, tt.inDocker)
	}
}

func TestResolveHostForDocker_NonLoopbackUnchanged(t *testing.T) {
	for _, host := range []string{"mydb.example.com", "192.168.1.100", "host.docker.internal"} {
		assert.Equal(t, host, ResolveHostForDocker(host))
	}
}

func TestHostRewriter(t *testing.T) {
	assert.Nil(t, (&DatasourceConfig{}).HostRewriter())
	assert.NotNil(t, (&DatasourceConfig{RewriteDockerHosts: true}).HostRewriter())
}
