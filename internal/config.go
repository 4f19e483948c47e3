package internal

import "time"

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	JWTSecret      string `env:"JWT_SECRET,required=true"`

	ConnectionBufferSize  int `env:"CONNECTION_BUFFER_SIZE,default=256"`
	MaxContentLength      int `env:"MAX_CONTENT_LENGTH,default=1000"`
	HistoryLimit          int `env:"HISTORY_LIMIT,default=50"`
	NotificationListLimit int `env:"NOTIFICATION_LIST_LIMIT,default=50"`

	// TypingIdleTimeout enables the opt-in typing sweeper when > 0.
	// Zero keeps the documented default: no server-side expiry.
	TypingIdleTimeout time.Duration `env:"TYPING_IDLE_TIMEOUT,default=0"`
	StorageGCInterval time.Duration `env:"STORAGE_GC_INTERVAL,default=10m"`
}
