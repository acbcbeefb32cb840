package cmd

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultHTTPTimeoutSeconds = 10
	defaultHTTPRetries        = 3
	defaultMaxRedirects       = 5
	defaultMaxBodyBytes       = 256 * 1024
	defaultConcurrency        = 1
	defaultDelay              = 500 * time.Millisecond
)

// defaultResolvers are the public resolvers DNS probes go through.
var defaultResolvers = []string{"8.8.8.8:53", "8.8.4.4:53"}

// CLIConfig captures runtime configuration for a check run. It is resolved
// once from flags, config file and environment, then passed by value into
// component constructors; nothing reads ambient process state afterwards.
type CLIConfig struct {
	URLsFile     string
	MaxURLs      int
	HostedZoneID string
	OutputFormat string
	LocalStorage bool
	S3Bucket     string

	Concurrency int
	Delay       time.Duration
	TimeoutSecs int
	Retries     int
}

// resolveStorage applies the LOCAL_MODE toggle and the S3_BUCKET variable.
// Local storage wins whenever either forces it or no bucket is named.
func (c *CLIConfig) resolveStorage() {
	if strings.EqualFold(viper.GetString("local_mode"), "true") {
		c.LocalStorage = true
	}
	if !c.LocalStorage {
		c.S3Bucket = viper.GetString("s3_bucket")
	}
}
