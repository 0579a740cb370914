package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Trigger(context.Background(), "mail:send")
	require.ErrorContains(t, err, "unsupported job")
}

func TestNilCLIErrors(t *testing.T) {
	var c *JobsCLI

	_, err := c.Trigger(context.Background(), "depreciation:run")
	require.Error(t, err)

	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)

	_, err = c.ListScheduled(context.Background(), 5)
	require.Error(t, err)

	require.NoError(t, c.Close())
}
