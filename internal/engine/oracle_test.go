package engine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgrid/timetable-api/internal/models"
)

func TestNullOracleSuggestsNothing(t *testing.T) {
	name, err := NullOracle{}.Suggest(models.Student{ID: "s1"}, []string{"Reading", "Sports"}, nil, StrategyBalanced)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestHTTPOracleSuggestReturnsPoolActivity(t *testing.T) {
	var got oracleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(oracleResponse{Activity: "sports"})
	}))
	defer server.Close()

	oracle := NewHTTPOracle(server.URL, time.Second)
	student := models.Student{ID: "s1", Interests: []string{"Sports"}, SkillLevel: 3, Goals: "stamina"}
	name, err := oracle.Suggest(student, []string{"Reading", "Sports"}, []string{"Clubs"}, StrategyInterest)
	require.NoError(t, err)

	// The answer is matched case-insensitively and canonicalized to the
	// pool's spelling.
	assert.Equal(t, "Sports", name)

	assert.Equal(t, "s1", got.StudentID)
	assert.Equal(t, []string{"Reading", "Sports"}, got.Pool)
	assert.Equal(t, []string{"Clubs"}, got.Exclusions)
	assert.Equal(t, StrategyInterest, got.Strategy)
}

func TestHTTPOracleSuggestEmptyAnswerMeansNoSuggestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(oracleResponse{Activity: "  "})
	}))
	defer server.Close()

	name, err := NewHTTPOracle(server.URL, time.Second).Suggest(models.Student{ID: "s1"}, []string{"Reading"}, nil, StrategyBalanced)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestHTTPOracleSuggestRejectsAnswerOutsidePool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(oracleResponse{Activity: "Chess"})
	}))
	defer server.Close()

	name, err := NewHTTPOracle(server.URL, time.Second).Suggest(models.Student{ID: "s1"}, []string{"Reading", "Sports"}, nil, StrategyBalanced)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool")
	assert.Empty(t, name)
}

func TestHTTPOracleSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPOracle(server.URL, time.Second).Suggest(models.Student{ID: "s1"}, []string{"Reading"}, nil, StrategyBalanced)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
