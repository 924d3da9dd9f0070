package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/finops-console/internal/core/dataview"
	"github.com/ammerola/finops-console/internal/core/domain"
	"github.com/ammerola/finops-console/internal/core/ports"
	"github.com/ammerola/finops-console/internal/handlers"
	"github.com/ammerola/finops-console/test/helpers"
	"github.com/ammerola/finops-console/test/mocks"
)

func TestParseListParams(t *testing.T) {
	march1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	march15 := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		query   string
		want    ports.ListParams
		wantErr string
	}{
		{
			name:  "defaults",
			query: "",
			want:  ports.ListParams{Page: 1, PageSize: 10},
		},
		{
			name:  "search_sort_and_paging",
			query: "search=+etl+&sort=credits&order=DESC&page=3&limit=25",
			want:  ports.ListParams{Search: "etl", SortBy: "credits", SortOrder: "desc", Page: 3, PageSize: 25},
		},
		{
			name:  "garbage_paging_falls_back",
			query: "page=abc&limit=-4",
			want:  ports.ListParams{Page: 1, PageSize: 10},
		},
		{
			name:  "limit_capped",
			query: "limit=5000",
			want:  ports.ListParams{Page: 1, PageSize: 100},
		},
		{
			name:  "multi_select_filters",
			query: "filter.status=Failed,Running&filter.user=alice&filter.user=bob&filter.empty=,",
			want: ports.ListParams{
				Page: 1, PageSize: 10,
				Selections: map[string][]string{
					"status": {"Failed", "Running"},
					"user":   {"alice", "bob"},
				},
			},
		},
		{
			name:  "window_and_explicit_dates",
			query: "date.started_at=7d&date.created_at=2025-03-01..2025-03-15&date.timestamp=..2025-03-15",
			want: ports.ListParams{
				Page: 1, PageSize: 10,
				Dates: map[string]dataview.DateRange{
					"started_at": dataview.Window("7d"),
					"created_at": dataview.Between(march1, march15),
					"timestamp":  dataview.Between(time.Time{}, march15),
				},
			},
		},
		{
			name:    "bad_date",
			query:   "date.started_at=2025-13-01..",
			wantErr: `invalid date "2025-13-01"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := handlers.ParseListParams(q)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseListParams() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestViewHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		view           string
		query          string
		setupMocks     func(*mocks.MockViewService)
		expectedStatus int
		validateBody   func(*testing.T, map[string]any)
	}{
		{
			name:  "lists_view_page",
			view:  "queries",
			query: "?filter.status=Failed&page=2&limit=5",
			setupMocks: func(m *mocks.MockViewService) {
				m.EXPECT().
					List(gomock.Any(), domain.ViewQueries, ports.ListParams{
						Selections: map[string][]string{"status": {"Failed"}},
						Page:       2,
						PageSize:   5,
					}).
					Return(&ports.ListResult{View: domain.ViewQueries, Items: []domain.Query{}, Page: 1, PageSize: 5, Message: "No queries found"}, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "queries", body["view"])
				assert.Equal(t, "No queries found", body["message"])
			},
		},
		{
			name:           "unknown_view",
			view:           "budgets",
			setupMocks:     func(m *mocks.MockViewService) {},
			expectedStatus: http.StatusNotFound,
			validateBody: func(t *testing.T, body map[string]any) {
				assert.Contains(t, body["error"], "unknown view")
			},
		},
		{
			name:           "bad_date_range",
			view:           "queries",
			query:          "?date.started_at=yesterday..",
			setupMocks:     func(m *mocks.MockViewService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "service_error_is_hidden",
			view: "warehouses",
			setupMocks: func(m *mocks.MockViewService) {
				m.EXPECT().List(gomock.Any(), domain.ViewWarehouses, gomock.Any()).
					Return(nil, errors.New("fixture decode failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Failed to list view", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockViewService(ctrl)
			tt.setupMocks(svc)
			handler := handlers.NewViewHandler(svc, helpers.TestLogger())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/views/"+tt.view+tt.query, nil)
			req.SetPathValue("view", tt.view)
			w := httptest.NewRecorder()

			handler.List(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.validateBody != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.validateBody(t, body)
			}
		})
	}
}

func TestViewHandler_Facets(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockViewService(ctrl)
	svc.EXPECT().Facets(gomock.Any(), domain.ViewWarehouses).
		Return(map[string][]string{"size": {"Large", "Medium"}, "status": {"Running"}}, nil)
	handler := handlers.NewViewHandler(svc, helpers.TestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/views/warehouses/facets", nil)
	req.SetPathValue("view", "warehouses")
	w := httptest.NewRecorder()
	handler.Facets(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Large", "Medium"}, body["size"])
}

func TestViewHandler_ListViews(t *testing.T) {
	handler := handlers.NewViewHandler(nil, helpers.TestLogger())
	w := httptest.NewRecorder()
	handler.ListViews(w, httptest.NewRequest(http.MethodGet, "/api/v1/views", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Views   []string `json:"views"`
		Windows []string `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Views, len(domain.Views))
	assert.Contains(t, body.Windows, "7d")
}
