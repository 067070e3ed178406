package shared

import "time"

type ServerConfig struct {
	Sqlite  SqliteConfig  `mapstructure:"sqlite" validate:"required"`
	EnableX EnableXConfig `mapstructure:"enablex" validate:"required"`
}

type SqliteConfig struct {
	PassPhrase string `mapstructure:"passPhrase"`
}

type EnableXConfig struct {
	Cron     CronConfig     `mapstructure:"cron" validate:"required"`
	Listener ListenerConfig `mapstructure:"listener" validate:"required"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Location LocationConfig `mapstructure:"location"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Reader   ReaderConfig   `mapstructure:"reader"`
	Intent   IntentConfig   `mapstructure:"intent"`
}

type CronConfig struct {
	TimeZone string `mapstructure:"timeZone" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

type AlertingConfig struct {
	CountdownSeconds int           `mapstructure:"countdownSeconds" validate:"omitempty,min=1"`
	SOSCooldown      time.Duration `mapstructure:"sosCooldown"`
	LocationTimeout  time.Duration `mapstructure:"locationTimeout"`
}

type LocationConfig struct {
	// Used as a fixed position for stationary devices, e.g. a bedside tablet
	FixedLatitude  *float64 `mapstructure:"fixedLatitude" validate:"omitempty,latitude"`
	FixedLongitude *float64 `mapstructure:"fixedLongitude" validate:"omitempty,longitude"`
}

type SpeechConfig struct {
	EspeakBinary string `mapstructure:"espeakBinary"`
}

type ReaderConfig struct {
	FramePath string `mapstructure:"framePath"`
	Language  string `mapstructure:"language"`
}

type IntentConfig struct {
	// "exec" hands URIs to the OS opener, "log" only logs them
	Launcher string `mapstructure:"launcher" validate:"omitempty,oneof=exec log"`
	Opener   string `mapstructure:"opener"`
	// Recipients of the support message composed from settings
	SupportEmails []string `mapstructure:"supportEmails" validate:"omitempty,dive,email"`
}
