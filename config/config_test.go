package config

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require.NoError(t, Load(""))

	cfg := Get()
	assert.Equal(t, DefaultRegion, cfg.AWS.Region)
	assert.Equal(t, DefaultPrefix, cfg.Alarm.NamePrefix)
	require.NotNil(t, cfg.Alarm.Threshold)
	assert.Equal(t, DefaultThreshold, *cfg.Alarm.Threshold)
	assert.Equal(t, []string{"*"}, cfg.Queues.Include)
	assert.False(t, cfg.Debug)
}

func TestLoadFile(t *testing.T) {
	f, err := ioutil.TempFile("", "config")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	data := `
debug: true
aws:
  region: ap-northeast-1
  event_sqs_url: https://sqs.ap-northeast-1.amazonaws.com/123456789012/queue-events
alarm:
  name_prefix: queue-backlog
  threshold: 100
  actions:
    - arn:aws:sns:ap-northeast-1:123456789012:alerts
queues:
  exclude:
    - temp-*
`
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, Load(f.Name()))

	cfg := Get()
	assert.True(t, cfg.Debug)
	assert.Equal(t, "ap-northeast-1", cfg.AWS.Region)
	assert.Equal(t, "queue-backlog", cfg.Alarm.NamePrefix)
	assert.Equal(t, 100.0, *cfg.Alarm.Threshold)
	assert.Equal(t, []string{"arn:aws:sns:ap-northeast-1:123456789012:alerts"}, cfg.Alarm.Actions)
	assert.Equal(t, []string{"temp-*"}, cfg.Queues.Exclude)
	// Defaults still apply to unset fields.
	assert.Equal(t, []string{"*"}, cfg.Queues.Include)
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, Load("no-such-file.yml"))
}

func TestLoadZeroThresholdIsKept(t *testing.T) {
	f, err := ioutil.TempFile("", "config")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	_, err = f.WriteString("alarm:\n  threshold: 0\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, Load(f.Name()))
	assert.Equal(t, 0.0, *Get().Alarm.Threshold)
}

func TestManagesQueue(t *testing.T) {
	require.NoError(t, Load(""))
	cfg := Get()

	assert.True(t, cfg.ManagesQueue("orders-queue"))

	cfg.Queues.Exclude = []string{"temp-*"}
	assert.False(t, cfg.ManagesQueue("temp-batch"))
	assert.True(t, cfg.ManagesQueue("orders-queue"))

	cfg.Queues.Include = []string{"prod-*"}
	assert.True(t, cfg.ManagesQueue("prod-orders"))
	assert.False(t, cfg.ManagesQueue("staging-orders"))

	// Exclude wins over include.
	cfg.Queues.Exclude = []string{"prod-internal-*"}
	assert.False(t, cfg.ManagesQueue("prod-internal-jobs"))
}
