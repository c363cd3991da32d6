// Package config loads the connection profile described in spec.md
// §6 (endpoint, security, PKI) from a TOML file — following
// danmuck-edgectl's internal/config.LoadGhostConfig shape — plus a
// handful of process-level knobs from the environment, following the
// teacher's pkg/config/config.go os.LookupEnv + strconv pattern.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// SecurityMode mirrors the §6 security_mode option.
type SecurityMode string

const (
	SecurityModeNone           SecurityMode = "None"
	SecurityModeSign           SecurityMode = "Sign"
	SecurityModeSignAndEncrypt SecurityMode = "SignAndEncrypt"
)

// ConnectionProfile is the §6 Configuration table, loaded from a TOML
// file and passed through to the Channel/Session.
type ConnectionProfile struct {
	EndpointURL       string       `toml:"endpoint_url"`
	ClientCert        string       `toml:"client_cert"`
	ClientKey         string       `toml:"client_key"`
	ServerCert        string       `toml:"server_cert"`
	PKIConfig         string       `toml:"pki_config"`
	SecurityPolicyURI string       `toml:"security_policy_uri"`
	SecurityMode      SecurityMode `toml:"security_mode"`
	ConnectTimeoutMS  int          `toml:"connect_timeout_ms"`
}

// ConnectTimeout returns ConnectTimeoutMS as a time.Duration.
func (p ConnectionProfile) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutMS) * time.Millisecond
}

// LoadConnectionProfile reads and validates a ConnectionProfile from a
// TOML file at path, defaulting fields the way
// danmuck-edgectl's config loaders default Addr/Name.
func LoadConnectionProfile(path string) (ConnectionProfile, error) {
	var profile ConnectionProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return ConnectionProfile{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &profile); err != nil {
		return ConnectionProfile{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if profile.SecurityPolicyURI == "" {
		profile.SecurityPolicyURI = "http://opcfoundation.org/UA/SecurityPolicy#None"
	}
	if profile.SecurityMode == "" {
		profile.SecurityMode = SecurityModeNone
	}
	if profile.ConnectTimeoutMS == 0 {
		profile.ConnectTimeoutMS = 5000
	}
	if err := validate(profile); err != nil {
		return ConnectionProfile{}, err
	}
	return profile, nil
}

func validate(p ConnectionProfile) error {
	if p.EndpointURL == "" {
		return fmt.Errorf("config: endpoint_url is required")
	}
	switch p.SecurityMode {
	case SecurityModeNone, SecurityModeSign, SecurityModeSignAndEncrypt:
	default:
		return fmt.Errorf("config: unknown security_mode %q", p.SecurityMode)
	}
	if p.SecurityMode != SecurityModeNone && (p.ClientCert == "" || p.ClientKey == "") {
		return fmt.Errorf("config: client_cert and client_key are required when security_mode is not None")
	}
	return nil
}
