package config

// Defaults returns the baseline configuration. Accounts are left empty
// on purpose: there is no meaningful default credential.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Accounts: map[string]AccountConfig{},
		Dispatcher: DispatcherConfig{
			Mode:           "echo",
			TimeoutSeconds: 120,
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        "~/.dingtalk-channel/history.db",
			RetentionDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}
