package copicake

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

// fakeAPI is an in-memory Copicake API. Each GET returns the next entry of
// getStatuses; the last entry repeats.
type fakeAPI struct {
	mu sync.Mutex

	createStatus string
	createID     string
	createCode   int
	getStatuses  []string
	getCodes     []int
	meCode       int

	createBodies  []string
	createHeaders []http.Header
	getIDs        []string
	getQueries    []string
	getHeaders    []http.Header
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &fakeAPI{
		createStatus: "pending",
		createID:     "r1",
		createCode:   http.StatusOK,
		meCode:       http.StatusOK,
	}

	g := gin.New()
	g.POST("/v1/image/create", api.create)
	g.GET("/v1/image/get", api.get)
	g.GET("/v1/user/me", api.me)

	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) create(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.createBodies = append(a.createBodies, string(body))
	a.createHeaders = append(a.createHeaders, c.Request.Header.Clone())

	if a.createCode != http.StatusOK {
		c.JSON(a.createCode, gin.H{"message": "create rejected"})
		return
	}

	data := gin.H{"status": a.createStatus}
	if a.createID != "" {
		data["id"] = a.createID
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (a *fakeAPI) get(c *gin.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.getIDs)
	a.getIDs = append(a.getIDs, c.Query("id"))
	a.getQueries = append(a.getQueries, c.Request.URL.RawQuery)
	a.getHeaders = append(a.getHeaders, c.Request.Header.Clone())

	if len(a.getCodes) > 0 {
		code := a.getCodes[min(n, len(a.getCodes)-1)]
		if code != http.StatusOK {
			c.JSON(code, gin.H{"message": "get failed"})
			return
		}
	}

	status := "processing"
	if len(a.getStatuses) > 0 {
		status = a.getStatuses[min(n, len(a.getStatuses)-1)]
	}

	data := gin.H{"id": c.Query("id"), "status": status}
	if status == string(StatusSuccess) {
		data["permalink"] = "https://cdn.copicake.com/" + c.Query("id") + ".png"
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (a *fakeAPI) me(c *gin.Context) {
	if c.GetHeader("Authorization") != "Bearer "+testAPIKey || a.meCode != http.StatusOK {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid api key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"email": "owner@example.com", "plan": "pro"}})
}

func (a *fakeAPI) gets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.getIDs)
}

func (a *fakeAPI) creates() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.createBodies)
}

// fakeClock advances only when slept on.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}

func newTestClient(t *testing.T, srv *httptest.Server, clock Clock) *Client {
	t.Helper()
	c := NewClient(Credentials{APIKey: testAPIKey}, srv.URL, WithClock(clock))
	require.NotNil(t, c)
	return c
}
