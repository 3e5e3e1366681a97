package testutil

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestIsVerbose(t *testing.T) {
	assert.True(t, isVerbose([]string{"pkg.test", "-test.v"}))
	assert.True(t, isVerbose([]string{"pkg.test", "-test.v=true"}))
	assert.True(t, isVerbose([]string{"pkg.test", "-test.v=test2json"}))
	assert.False(t, isVerbose([]string{"pkg.test", "-test.v=false"}))
	assert.False(t, isVerbose([]string{"pkg.test", "-test.run=TestIsVerbose"}))
}

func TestDisableLogging(t *testing.T) {
	previous := logrus.StandardLogger().Out

	reset := DisableLogging()
	assert.Equal(t, io.Discard, logrus.StandardLogger().Out)

	reset()
	assert.Equal(t, previous, logrus.StandardLogger().Out)
}
