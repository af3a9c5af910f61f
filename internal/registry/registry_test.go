package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fox-gonic/fox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeops/ruleaudit/internal/rule"
)

func sampleRules() []*rule.Rule {
	start, end := 9*3600, 17*3600
	return []*rule.Rule{
		{
			ID: 1, Name: "daily-feed", Type: rule.FileMonitorRule, Status: true,
			Pattern: "/data/feed.${B1_YYYYMMDD}.csv", Timezone: rule.TzNewYork,
			Country: "US", StartTime: &start, EndTime: &end,
			DelayCode: "B", DelayValue: 1,
			WindowInclude: []rule.Window{rule.WeekdayWindow{Weekdays: "12345"}},
			Constraints:   []rule.Constraint{rule.MaxAgeConstraint{MaxAge: 5400}},
		},
		{ID: 2, Name: "hourly-table", Type: rule.TableServiceRule, Status: true, Timezone: rule.TzGMT},
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(sampleRules())
	ctx := context.Background()

	r, err := store.GetRule(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "daily-feed", r.Name)

	// Returned rules are copies.
	r.Name = "mutated"
	again, err := store.GetRule(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "daily-feed", again.Name)

	_, err = store.GetRule(ctx, 99)
	assert.ErrorIs(t, err, ErrRuleNotFound)

	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int64(1), rules[0].ID)
	assert.Equal(t, int64(2), rules[1].ID)
}

func testRegistryServer(t *testing.T, store Store) *httptest.Server {
	t.Helper()
	router := fox.New()
	NewApi(router, store)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := testRegistryServer(t, NewMemoryStore(sampleRules()))
	client := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	r, err := client.GetRule(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sampleRules()[0], r)

	rules, err := client.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = client.GetRule(ctx, 99)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestUpsertRulesEndpoint(t *testing.T) {
	store := NewMemoryStore(nil)
	srv := testRegistryServer(t, store)

	doc, err := rule.EncodeRules(sampleRules())
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/rules", strings.NewReader(string(doc)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rules, err := store.ListRules(context.Background())
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestUpsertRulesRejectsBadDocument(t *testing.T) {
	srv := testRegistryServer(t, NewMemoryStore(nil))

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/rules", strings.NewReader("rules:\n  - id: 0\n"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
