package internal

import "fmt"

// Config holds every externally supplied setting. The single BaseURL
// derives both the REST base (plus /api) and the push channel URL.
type Config struct {
	BaseURL              string `env:"CHAT_BASE_URL,required=true"`
	LogLevel             string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string `env:"BADGER_FILEPATH,required=true"`
	ConnectionBufferSize int    `env:"CONNECTION_BUFFER_SIZE,default=64"`
	MessagePageSize      int    `env:"MESSAGE_PAGE_SIZE,default=50"`
}

func (c Config) Validate() error {
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.MessagePageSize <= 0 {
		return fmt.Errorf("MESSAGE_PAGE_SIZE must be positive, got %d", c.MessagePageSize)
	}
	return nil
}
