package config

import (
	"io/ioutil"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	DefaultRegion    = "us-east-1"
	DefaultThreshold = 5.0
	DefaultPrefix    = "sqs-queue-depth"
)

var c Config

type Config struct {
	Debug bool `yaml:"debug"`

	AWS struct {
		Region string `yaml:"region"`
		// EventSqsURL is the queue that receives CreateQueue/DeleteQueue
		// CloudTrail events (EventBridge -> SNS -> SQS). Used by poll only.
		EventSqsURL string `yaml:"event_sqs_url"`
	} `yaml:"aws"`

	Alarm struct {
		NamePrefix string   `yaml:"name_prefix"`
		Threshold  *float64 `yaml:"threshold"`
		// Actions are notification target ARNs fired on both breach and
		// recovery. Optional.
		Actions []string `yaml:"actions"`
		// LookupMaxElapsed bounds (in seconds) the retry of the queue
		// existence lookup. 0 means a single attempt.
		LookupMaxElapsed int64 `yaml:"lookup_max_elapsed"`
	} `yaml:"alarm"`

	Queues struct {
		Include []string `yaml:"include"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"queues"`

	Slack struct {
		APIToken        string `yaml:"api_token"`
		Username        string `yaml:"username"`
		IconURL         string `yaml:"icon_url"`
		AttachmentColor string `yaml:"attachment_color"`
		Channel         string `yaml:"channel"`
	} `yaml:"slack"`
}

// Load reads the optional yaml config file. An empty filename leaves the
// built-in defaults in place.
func Load(filename string) error {
	c = Config{}
	if filename != "" {
		data, err := ioutil.ReadFile(filename)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return errors.WithStack(err)
		}
	}
	c.applyDefault()

	return nil
}

func Get() *Config {
	return &c
}

func (c *Config) applyDefault() {
	if c.AWS.Region == "" {
		c.AWS.Region = DefaultRegion
	}
	if c.Alarm.NamePrefix == "" {
		c.Alarm.NamePrefix = DefaultPrefix
	}
	if c.Alarm.Threshold == nil {
		t := DefaultThreshold
		c.Alarm.Threshold = &t
	}
	if len(c.Queues.Include) == 0 {
		c.Queues.Include = []string{"*"}
	}
}

// ManagesQueue reports whether the queue name passes the include/exclude
// patterns. Exclude wins over include.
func (c *Config) ManagesQueue(name string) bool {
	for _, p := range c.Queues.Exclude {
		if glob.MustCompile(p).Match(name) {
			return false
		}
	}
	for _, p := range c.Queues.Include {
		if glob.MustCompile(p).Match(name) {
			return true
		}
	}

	return false
}
