//go:build linux

package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, modeOK},
		{&descriptor.RemoteError{Message: "x"}, modeError},
		{fmt.Errorf("read: %w", descriptor.ErrDetached), modeDetach},
		{descriptor.ErrRemoteDead, modeCrash},
		{descriptor.ErrRemoteLeaked, "unknown"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), "err=%v", tt.err)
	}
}

func TestValidate(t *testing.T) {
	base := options{mode: modeOK, message: "m", payload: 10, timeout: time.Second}
	assert.NoError(t, validate(base))

	tests := map[string]func(o *options){
		"unknown mode":  func(o *options) { o.mode = "explode" },
		"empty message": func(o *options) { o.mode = modeError; o.message = "" },
		"negative size": func(o *options) { o.payload = -1 },
		"zero timeout":  func(o *options) { o.timeout = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			o := base
			mutate(&o)
			assert.Error(t, validate(o))
		})
	}
}

func TestPayload(t *testing.T) {
	assert.Empty(t, payload(0))
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyzab", string(payload(28)))
}
