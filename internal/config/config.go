package config

import (
	"encoding/base64"
	"fmt"
)

type Config struct {
	ServerAddr     string
	CassandraHosts []string
	Keyspace       string
	Consistency    string
	SigningKey     []byte
	AllowedOrigins []string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr string, hosts []string, keyspace, consistency, base64Secret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("at least one cassandra host is required")
	}
	if keyspace == "" {
		return nil, fmt.Errorf("keyspace cannot be empty")
	}
	if consistency == "" {
		consistency = "quorum"
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		ServerAddr:     serverAddr,
		CassandraHosts: hosts,
		Keyspace:       keyspace,
		Consistency:    consistency,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
	}, nil
}
