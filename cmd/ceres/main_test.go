package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigureLogging_UnknownLevelFallsBackToInfo(t *testing.T) {
	assert.NotPanics(t, func() { configureLogging("bogus") })
}

func TestStartMetricsServer_InvalidAddr(t *testing.T) {
	_, err := startMetricsServer("not-a-valid-addr:::")
	assert.Error(t, err)
}
