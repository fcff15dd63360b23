package s3

import (
	"fmt"
	"strings"
)

type Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	// PublicBaseURL - префикс публичных ссылок; по умолчанию Endpoint/Bucket
	PublicBaseURL string `mapstructure:"PublicBaseURL"`
	UsePathStyle  bool   `mapstructure:"UsePathStyle"`
}

// Validate проверяет обязательные поля и подставляет значения по умолчанию
func (c *Config) Validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	if c.Endpoint == "" {
		c.Endpoint = "https://storage.yandexcloud.net"
	}
	if c.Region == "" {
		c.Region = "ru-central1"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	return nil
}
