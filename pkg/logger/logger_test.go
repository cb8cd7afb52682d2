package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriters_SplitsByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log := NewWithWriters(false, &stdout, &stderr)

	log.Info("page finished")
	log.Warn("skipping pull")
	log.Error("crawl aborted")
	log.Debug("hidden")

	assert.Contains(t, stdout.String(), "page finished")
	assert.Contains(t, stdout.String(), "skipping pull")
	assert.NotContains(t, stdout.String(), "crawl aborted")
	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stderr.String(), "crawl aborted")
	assert.NotContains(t, stderr.String(), "page finished")
}

func TestNewWithWriters_VerboseKeepsDebug(t *testing.T) {
	var stdout, stderr bytes.Buffer
	log := NewWithWriters(true, &stdout, &stderr)

	log.Debug("cache hit")

	assert.Contains(t, stdout.String(), "cache hit")
	assert.Empty(t, stderr.String())
}
