package jobrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionKind(t *testing.T) {
	cases := map[string]string{
		"up":                "deploy",
		"down":              "destroy",
		"sync":              "sync",
		"sync:node:r1":      "sync",
		"node:r1:start":     "node-action",
		"node:r1:stop":      "node-action",
		"agent-update":      "sync",
	}
	for action, want := range cases {
		assert.Equal(t, want, actionKind(action), "action=%s", action)
	}
}
