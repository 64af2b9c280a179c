package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRejectsUnknownTransport(t *testing.T) {
	err := run(context.Background(), "config/config.yaml", "websocket", "8085")
	assert.ErrorContains(t, err, "unknown transport")
}
