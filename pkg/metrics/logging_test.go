package metrics

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewRelicMessage(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Message = "transaction failed"
	assert.Equal(t, "transaction failed", newRelicMessage(entry))

	entry = entry.WithError(errors.New("insufficient funds")).WithField("signature", "abc")
	entry.Message = "transaction failed"
	assert.Equal(
		t,
		`message="transaction failed", error="insufficient funds", data={"signature":"abc"}`,
		newRelicMessage(entry),
	)
}
