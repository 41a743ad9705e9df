package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig    = "config"
	FlagEnvFile   = "env-file"
	FlagBroker    = "broker"
	FlagClientID  = "client-id"
	FlagUsername  = "username"
	FlagPassword  = "password"
	FlagPrefix    = "topic-prefix"
	FlagHeartbeat = "heartbeat"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

// RegisterFlags adds the agent flags to fs. Only flags set on the command
// line override the other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP(FlagConfig, "c", "", "path to the YAML configuration file")
	fs.String(FlagEnvFile, ".env", "path to a .env file (ignored when missing)")
	fs.StringP(FlagBroker, "b", d.Broker.URL, "broker URL (tcp, tls, ws or wss)")
	fs.String(FlagClientID, "", "MQTT client id (default: random)")
	fs.String(FlagUsername, "", "MQTT username")
	fs.String(FlagPassword, "", "MQTT password")
	fs.String(FlagPrefix, "", "topic prefix (default: devices/<client id>)")
	fs.Duration(FlagHeartbeat, d.Agent.HeartbeatInterval, "heartbeat interval")
	fs.String(FlagLogLevel, d.Log.Level, "log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.Log.Format, "log format (text, json)")
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagBroker:    &c.Broker.URL,
		FlagClientID:  &c.Broker.ClientID,
		FlagUsername:  &c.Broker.Username,
		FlagPassword:  &c.Broker.Password,
		FlagPrefix:    &c.Agent.TopicPrefix,
		FlagLogLevel:  &c.Log.Level,
		FlagLogFormat: &c.Log.Format,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
		*dst = v
	}

	if fs.Lookup(FlagHeartbeat) != nil && fs.Changed(FlagHeartbeat) {
		v, err := fs.GetDuration(FlagHeartbeat)
		if err != nil {
			return fmt.Errorf("flag --%s: %w", FlagHeartbeat, err)
		}
		c.Agent.HeartbeatInterval = v
	}
	return nil
}
