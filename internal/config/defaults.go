package config

import "time"

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP: HTTP{Port: 8080},
		DB: DB{
			Host:    "127.0.0.1",
			Port:    "5432",
			User:    "dispatch",
			Pass:    "dispatch",
			Name:    "dispatch",
			SSLMode: "disable",
		},
		Rabbit: Rabbit{
			Host:  "127.0.0.1",
			Port:  5672,
			User:  "guest",
			Pass:  "guest",
			VHost: "",
		},
		Redis: Redis{Addr: "127.0.0.1:6379"},
		Locator: Gateway{
			BaseURL:     "http://127.0.0.1:8081",
			Timeout:     3 * time.Second,
			MaxAttempts: 4,
			BaseDelay:   150 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		Orders: Gateway{
			BaseURL:     "http://127.0.0.1:8082",
			Timeout:     3 * time.Second,
			MaxAttempts: 4,
			BaseDelay:   150 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		Dispatch: Dispatch{
			Prefetch:       1,
			HandlerTimeout: 30 * time.Second,
			// Deferred messages are requeued after a fixed delay,
			// with no attempt bound. Both knobs are visible here so
			// operators can cap the loop.
			RetryDelay:       5 * time.Second,
			RetryMaxAttempts: 0,
		},
		Relay: Relay{ReportInterval: 10 * time.Second},
	}
}
