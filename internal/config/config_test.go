package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	resetViper()
	defer resetViper()

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}

	if cfg.AVS.Path == "" {
		t.Error("AVS.Path default should not be empty")
	}
	if cfg.Queue.Capacity <= 0 {
		t.Errorf("Queue.Capacity default = %d, want > 0", cfg.Queue.Capacity)
	}
	if cfg.Timer.TickInterval != 5*time.Second {
		t.Errorf("Timer.TickInterval default = %v, want 5s", cfg.Timer.TickInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level default = %v, want info", cfg.Log.Level)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				AVS:   AVSConfig{Path: "/tmp/avs.bin"},
				Queue: QueueConfig{Capacity: 256},
				Timer: TimerConfig{TickInterval: 5 * time.Second},
				Log:   LogConfig{Level: "info"},
				API:   APIConfig{Enabled: false},
			},
			wantErr: false,
		},
		{
			name: "empty avs path",
			cfg: Config{
				Queue: QueueConfig{Capacity: 256},
				Timer: TimerConfig{TickInterval: 5 * time.Second},
				Log:   LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "zero queue capacity",
			cfg: Config{
				AVS:   AVSConfig{Path: "/tmp/avs.bin"},
				Timer: TimerConfig{TickInterval: 5 * time.Second},
				Log:   LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "zero tick interval",
			cfg: Config{
				AVS:   AVSConfig{Path: "/tmp/avs.bin"},
				Queue: QueueConfig{Capacity: 256},
				Log:   LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "empty log level",
			cfg: Config{
				AVS:   AVSConfig{Path: "/tmp/avs.bin"},
				Queue: QueueConfig{Capacity: 256},
				Timer: TimerConfig{TickInterval: 5 * time.Second},
			},
			wantErr: true,
		},
		{
			name: "api enabled with no addr",
			cfg: Config{
				AVS:   AVSConfig{Path: "/tmp/avs.bin"},
				Queue: QueueConfig{Capacity: 256},
				Timer: TimerConfig{TickInterval: 5 * time.Second},
				Log:   LogConfig{Level: "info"},
				API:   APIConfig{Enabled: true, Addr: ""},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
