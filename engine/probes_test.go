package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TheLab-ms/bookcase/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthProbe(t *testing.T) {
	database := db.NewTest(t)

	router := NewRouter(nil)
	router.HandleFunc("GET", "/healthz", ServeHealthProbe(database))
	server := httptest.NewServer(router)
	defer server.Close()

	require.NoError(t, CheckHealthProbe(server.URL+"/healthz"))

	database.Close()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Error(t, CheckHealthProbe(server.URL+"/missing"))
}
