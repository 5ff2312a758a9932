package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collectdash/internal/collections"
	apierrors "collectdash/internal/errors"
	"collectdash/internal/services"
	"collectdash/internal/shared/testutil"
	"collectdash/pkg/contracts/domain"
)

func sampleSnapshot(t *testing.T) *domain.DashboardSnapshot {
	t.Helper()
	agg := collections.NewAggregator(nil, collections.NewExclusions(collections.ExcludeFold, nil), testutil.Logger(t))
	coll, err := agg.Aggregate(context.Background(), testutil.NewPortfolioSource())
	require.NoError(t, err)
	return &domain.DashboardSnapshot{
		Epoch:      42,
		ComputedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Report:     collections.Compute(coll.Records),
		Agents:     []string{"Alice", "Bob"},
	}
}

func newDashboardServer(t *testing.T, svc DashboardService, sess domain.Session) http.Handler {
	t.Helper()
	logger := testutil.Logger(t)
	h := NewDashboardHandler(svc, logger, apierrors.NewErrorHandler(logger, false))
	return withSession(sess, h.Routes())
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Snapshot", mock.Anything).Return(sampleSnapshot(t), nil)

	rec := serve(newDashboardServer(t, svc, agentSession), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Epoch)
	assert.Equal(t, testutil.FixtureTotalCollected, resp.Headline.TotalCollected)
	assert.Equal(t, "KES 800.00", resp.Headline.TotalCollectedDisplay)
	assert.Equal(t, testutil.FixtureRecordCount, resp.Headline.RecordCount)
	assert.NotNil(t, resp.Warnings)
	assert.Equal(t, []string{"Alice", "Bob"}, resp.Agents)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_SnapshotErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "empty data",
			err:        apierrors.NewDataError("No data available", collections.ErrEmptyData),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   apierrors.TypeDataEmpty,
		},
		{
			name:       "source down",
			err:        apierrors.NewNetworkError("collections source unavailable", errors.New("dial tcp")),
			wantStatus: http.StatusBadGateway,
			wantType:   apierrors.TypeSourceUnavailable,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   apierrors.TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("Snapshot", mock.Anything).Return(nil, tt.err)

			rec := serve(newDashboardServer(t, svc, adminSession), http.MethodGet, "/states")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

func TestDashboardHandler_Tables(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Snapshot", mock.Anything).Return(sampleSnapshot(t), nil)
	h := newDashboardServer(t, svc, agentSession)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:       "states",
			target:     "/states",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var table domain.StateMetricsTable
				require.NoError(t, json.Unmarshal(body, &table))
				assert.Equal(t, testutil.FixtureTotalCollected, table.Total.Collected)
			},
		},
		{
			name:       "agents filtered",
			target:     "/agents?agent=Bob",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var table domain.AgentTotalsTable
				require.NoError(t, json.Unmarshal(body, &table))
				require.Len(t, table.Rows, 1)
				assert.Equal(t, "Bob", table.Rows[0].Agent)
			},
		},
		{
			name:       "agents repeated",
			target:     "/agents?agent=Bob&agent=Alice",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var table domain.AgentTotalsTable
				require.NoError(t, json.Unmarshal(body, &table))
				assert.Len(t, table.Rows, 2)
			},
		},
		{
			name:       "unknown agent",
			target:     "/agents?agent=Mallory",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rank by total collected",
			target:     "/agents/rank?metric=total_collected",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var ranking services.Ranking
				require.NoError(t, json.Unmarshal(body, &ranking))
				assert.Equal(t, services.MetricTotalCollected, ranking.Metric)
				require.Len(t, ranking.Agents, 2)
				assert.Equal(t, "Bob", ranking.Agents[0].Agent)
				assert.Equal(t, 1, ranking.Agents[0].Rank)
			},
		},
		{
			name:       "rank by unknown metric",
			target:     "/agents/rank?metric=happiness",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "partials",
			target:     "/partials",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var table domain.PartialsTable
				require.NoError(t, json.Unmarshal(body, &table))
				assert.Equal(t, 2, table.Total.Count)
			},
		},
		{
			name:       "feedback",
			target:     "/feedback",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var summary FeedbackResponse
				require.NoError(t, json.Unmarshal(body, &summary))
				require.Len(t, summary.Rows, len(collections.FeedbackCategories))
				assert.Equal(t, "Employed with MOU Institution", summary.Rows[0].Feedback)
				assert.Equal(t, "KES 0", summary.Rows[0].AmountDisplay)
				assert.Equal(t, "Employed", summary.Rows[1].Feedback)
				assert.Equal(t, 5000.0, summary.Rows[1].Amount)
				assert.Equal(t, "KES 5,000", summary.Rows[1].AmountDisplay)
			},
		},
		{
			name:       "analytics default metric",
			target:     "/analytics",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var series services.AnalyticsSeries
				require.NoError(t, json.Unmarshal(body, &series))
				assert.Equal(t, services.MetricTotalCollected, series.Metric)
				assert.Len(t, series.Points, len(collections.TrackedStates))
			},
		},
		{
			name:       "analytics unknown metric",
			target:     "/analytics?metric=nope",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec.Body.Bytes())
			}
		})
	}
}

func TestDashboardHandler_MetricNames(t *testing.T) {
	rec := serve(newDashboardServer(t, new(MockDashboardService), agentSession), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var names map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, services.RankMetrics(), names["rank"])
	assert.Equal(t, services.AnalyticsMetrics, names["analytics"])
}

func TestDashboardHandler_Refresh(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Refresh", mock.Anything, services.TriggerManual).Return(sampleSnapshot(t), nil)

	rec := serve(newDashboardServer(t, svc, agentSession), http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDashboardHandler_Exports(t *testing.T) {
	tests := []struct {
		name        string
		sess        domain.Session
		target      string
		wantStatus  int
		wantType    string
		wantHeader  string
		wantInitial string
	}{
		{
			name:        "states csv",
			sess:        adminSession,
			target:      "/export/states.csv",
			wantStatus:  http.StatusOK,
			wantType:    "text/csv; charset=utf-8",
			wantInitial: "\ufeffAccount State,Total Allocated Balance,Total Collected,Conversion Rate",
		},
		{
			name:        "agents csv",
			sess:        domain.Session{Username: "root", Role: domain.RoleSuperAdmin},
			target:      "/export/agents.csv",
			wantStatus:  http.StatusOK,
			wantType:    "text/csv; charset=utf-8",
			wantInitial: "\ufeffAgent,Arrears,Write Off,NPL,No Interest,Total Collected,Conversion Rate",
		},
		{
			name:        "partials csv",
			sess:        adminSession,
			target:      "/export/partials.csv",
			wantStatus:  http.StatusOK,
			wantType:    "text/csv; charset=utf-8",
			wantInitial: "\ufeffAccount State,Partials Count,Partial Amount",
		},
		{
			name:       "workbook",
			sess:       adminSession,
			target:     "/export/report.xlsx",
			wantStatus: http.StatusOK,
			wantType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
		{
			name:       "agent forbidden",
			sess:       agentSession,
			target:     "/export/states.csv",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			svc.On("Snapshot", mock.Anything).Return(sampleSnapshot(t), nil)

			rec := serve(newDashboardServer(t, svc, tt.sess), http.MethodGet, tt.target)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				svc.AssertNotCalled(t, "Snapshot", mock.Anything)
				return
			}
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
			if tt.wantInitial != "" {
				assert.True(t, strings.HasPrefix(rec.Body.String(), tt.wantInitial), rec.Body.String())
			}
		})
	}
}

func TestAgentParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/agents?agent=Alice,%20Bob&agent=Carol&agent=", nil)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, agentParams(req))

	req = httptest.NewRequest(http.MethodGet, "/agents", nil)
	assert.Empty(t, agentParams(req))
}
