package copicake

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titleRequest() RenderRequest {
	return RenderRequest{
		TemplateID: "t1",
		Changes:    []Change{TextChange{Name: "title", Text: "Hi"}},
	}
}

func TestCreateAndAwait_NoWait(t *testing.T) {
	api, srv := newFakeAPI(t)
	clock := newFakeClock()
	c := newTestClient(t, srv, clock)

	poll := DefaultPollConfig()
	poll.WaitForCompletion = false

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), poll)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotAwaited, res.Outcome)
	assert.Equal(t, StatusPending, res.Job.Status)
	assert.Equal(t, 0, res.Polls)
	assert.Equal(t, 0, api.gets())
	assert.Empty(t, clock.sleeps)
}

func TestCreateAndAwait_AlreadyTerminal(t *testing.T) {
	for _, status := range []string{"success", "failed"} {
		t.Run(status, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.createStatus = status
			c := newTestClient(t, srv, newFakeClock())

			res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
			require.NoError(t, err)

			assert.Equal(t, OutcomeCompleted, res.Outcome)
			assert.Equal(t, Status(status), res.Job.Status)
			assert.Equal(t, 0, api.gets())
		})
	}
}

func TestCreateAndAwait_NoIDSkipsPolling(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.createID = ""
	c := newTestClient(t, srv, newFakeClock())

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotAwaited, res.Outcome)
	assert.Equal(t, 0, api.gets())
}

func TestCreateAndAwait_TimeoutBoundsPolls(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.getStatuses = []string{"processing"}
	clock := newFakeClock()
	c := newTestClient(t, srv, clock)
	start := clock.Now()

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), PollConfig{
		WaitForCompletion: true,
		PollingInterval:   2 * time.Second,
		MaxWait:           5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, StatusProcessing, res.Job.Status)
	assert.Equal(t, "r1", res.Job.ID)
	assert.Equal(t, 2, res.Polls)
	assert.Equal(t, 2, api.gets())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.sleeps)
	assert.LessOrEqual(t, clock.elapsed(start), 5*time.Second)
}

func TestCreateAndAwait_PollCountBound(t *testing.T) {
	tests := []struct {
		interval time.Duration
		maxWait  time.Duration
		want     int
	}{
		{time.Second, 3 * time.Second, 3},
		{2 * time.Second, 60 * time.Second, 30},
		{5 * time.Second, 4 * time.Second, 0},
		{3 * time.Second, 3 * time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.interval.String()+"/"+tt.maxWait.String(), func(t *testing.T) {
			api, srv := newFakeAPI(t)
			c := newTestClient(t, srv, newFakeClock())

			res, err := c.CreateAndAwait(context.Background(), titleRequest(), PollConfig{
				WaitForCompletion: true,
				PollingInterval:   tt.interval,
				MaxWait:           tt.maxWait,
			})
			require.NoError(t, err)

			assert.Equal(t, OutcomeTimedOut, res.Outcome)
			assert.Equal(t, tt.want, res.Polls)
			assert.Equal(t, tt.want, api.gets())
		})
	}
}

func TestCreateAndAwait_CompletesAfterOnePoll(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.getStatuses = []string{"success"}
	clock := newFakeClock()
	c := newTestClient(t, srv, clock)
	start := clock.Now()

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, StatusSuccess, res.Job.Status)
	assert.Equal(t, 1, res.Polls)
	assert.Equal(t, 2*time.Second, clock.elapsed(start))

	url, ok := res.Job.Field("data.permalink")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.copicake.com/r1.png", url)

	require.Equal(t, 1, api.creates())
	assert.JSONEq(t, `{"template_id":"t1","changes":[{"name":"title","text":"Hi"}]}`, api.createBodies[0])
	assert.Equal(t, []string{"r1"}, api.getIDs)
}

func TestCreateAndAwait_StopsOnFailed(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.getStatuses = []string{"processing", "failed", "success"}
	c := newTestClient(t, srv, newFakeClock())

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, StatusFailed, res.Job.Status)
	assert.Equal(t, 2, res.Polls)
}

func TestCreateAndAwait_PollErrorReturnsLastState(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.getStatuses = []string{"processing"}
	api.getCodes = []int{http.StatusOK, http.StatusInternalServerError}
	c := newTestClient(t, srv, newFakeClock())

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomePollError, res.Outcome)
	assert.Equal(t, StatusProcessing, res.Job.Status)
	assert.Equal(t, 2, res.Polls)

	re, ok := IsRemoteError(res.PollErr)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
}

func TestCreateAndAwait_FirstPollErrorReturnsSubmission(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.getCodes = []int{http.StatusBadGateway}
	c := newTestClient(t, srv, newFakeClock())

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomePollError, res.Outcome)
	assert.Equal(t, StatusPending, res.Job.Status)
	assert.Equal(t, "r1", res.Job.ID)
}

func TestCreateAndAwait_Cancelled(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv, &cancellingClock{fakeClock: newFakeClock()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.clock.(*cancellingClock).cancel = cancel

	res, err := c.CreateAndAwait(ctx, titleRequest(), DefaultPollConfig())
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Equal(t, StatusPending, res.Job.Status)
	assert.Equal(t, 0, api.gets())
}

func TestCreateAndAwait_SubmissionError(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.createCode = http.StatusUnprocessableEntity
	c := newTestClient(t, srv, newFakeClock())

	res, err := c.CreateAndAwait(context.Background(), titleRequest(), DefaultPollConfig())
	require.Error(t, err)
	assert.Nil(t, res)

	re, ok := IsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, re.StatusCode)
	assert.False(t, re.Temporary())
	assert.Equal(t, 0, api.gets())
}

func TestCreateAndAwait_PollConfig(t *testing.T) {
	t.Run("zero durations use defaults", func(t *testing.T) {
		api, srv := newFakeAPI(t)
		api.getStatuses = []string{"success"}
		clock := newFakeClock()
		c := newTestClient(t, srv, clock)

		res, err := c.CreateAndAwait(context.Background(), titleRequest(), PollConfig{WaitForCompletion: true})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, res.Outcome)
		assert.Equal(t, []time.Duration{DefaultPollingInterval}, clock.sleeps)
	})

	t.Run("negative durations are rejected before submitting", func(t *testing.T) {
		api, srv := newFakeAPI(t)
		c := newTestClient(t, srv, newFakeClock())

		for _, poll := range []PollConfig{
			{WaitForCompletion: true, PollingInterval: -time.Second},
			{WaitForCompletion: true, MaxWait: -time.Second},
		} {
			_, err := c.CreateAndAwait(context.Background(), titleRequest(), poll)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		}
		assert.Equal(t, 0, api.creates())
	})
}

// cancellingClock cancels the context on the first sleep, as a caller
// giving up mid-wait would.
type cancellingClock struct {
	*fakeClock
	cancel context.CancelFunc
}

func (c *cancellingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.cancel()
	return c.fakeClock.Sleep(ctx, d)
}
