package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/httputil"
)

func pageContext(t *testing.T, url string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	c.Request = req
	return c
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected httputil.Page
		errField string
	}{
		{
			name:     "first page of dead letters by default",
			url:      "/v1/queues/default/dead-letters",
			expected: httputil.Page{Offset: 0, Limit: httputil.DefaultPageLimit},
		},
		{
			name:     "explicit window",
			url:      "/v1/queues/default/dead-letters?offset=10&limit=20",
			expected: httputil.Page{Offset: 10, Limit: 20},
		},
		{
			name:     "limit at cap",
			url:      "/v1/queues/default/dead-letters?limit=100",
			expected: httputil.Page{Offset: 0, Limit: httputil.MaxPageLimit},
		},
		{
			name:     "negative offset",
			url:      "/v1/queues/default/dead-letters?offset=-1",
			errField: "offset",
		},
		{
			name:     "zero limit",
			url:      "/v1/queues/default/dead-letters?limit=0",
			errField: "limit",
		},
		{
			name:     "limit above cap",
			url:      "/v1/queues/default/dead-letters?limit=101",
			errField: "limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := httputil.ParsePage(pageContext(t, tt.url))

			if tt.errField != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errField)
				assert.Equal(t, httputil.Page{}, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, page)
		})
	}
}

func TestParsePage_NonIntegerValues(t *testing.T) {
	for _, url := range []string{"/?offset=abc", "/?limit=xyz"} {
		t.Run(url, func(t *testing.T) {
			page, err := httputil.ParsePage(pageContext(t, url))

			require.Error(t, err)
			assert.Equal(t, "offset and limit must be integers", err.Error())
			assert.Equal(t, httputil.Page{}, page)
		})
	}
}

func TestPage_Validate(t *testing.T) {
	assert.NoError(t, httputil.Page{Offset: 500, Limit: 1}.Validate())
	assert.Error(t, httputil.Page{Offset: 0, Limit: 0}.Validate())
	assert.Error(t, httputil.Page{Offset: -3, Limit: 10}.Validate())
}
