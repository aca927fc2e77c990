package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/bus"
	"github.com/opensource-finance/praxis/internal/cache"
	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/opensource-finance/praxis/internal/policy"
	"github.com/opensource-finance/praxis/internal/repository"
	"github.com/opensource-finance/praxis/internal/stats"
	"github.com/opensource-finance/praxis/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-001"

var testNow = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

// createTestServer wires a server over a temporary SQLite database.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "api-test-*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	registry, err := policy.NewRegistry(repo.ListPolicies, 2)
	require.NoError(t, err)

	clock := func() time.Time { return testNow }
	st := stats.NewService(repo, lru, time.Minute)
	flow := workflow.New(repo, eventBus, st, registry, policy.NewAssessor(0), workflow.WithClock(clock))

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
	return NewServer(cfg, Deps{
		Repo:     repo,
		Cache:    lru,
		Bus:      eventBus,
		Workflow: flow,
		Stats:    st,
		Version:  "test-v1",
		Now:      clock,
	})
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TenantIDHeader, testTenant)

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func field(t *testing.T, m map[string]interface{}, keys ...string) interface{} {
	t.Helper()
	var cur interface{} = m
	for _, k := range keys {
		obj, ok := cur.(map[string]interface{})
		require.True(t, ok, "missing %q", k)
		cur = obj[k]
	}
	return cur
}

func batchBody() map[string]interface{} {
	return map[string]interface{}{
		"name":              "Spring cohort",
		"code":              "SP24",
		"registrationStart": "2024-01-01T00:00:00Z",
		"registrationEnd":   "2024-01-31T00:00:00Z",
		"startDate":         "2024-02-01T00:00:00Z",
		"endDate":           "2024-05-31T00:00:00Z",
		"maxStudents":       2,
	}
}

func createBatch(t *testing.T, s *Server) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/batches", batchBody())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return field(t, decodeBody(t, rr), "batch", "id").(string)
}

func createInternship(t *testing.T, s *Server, batchID string) string {
	t.Helper()
	rr := do(t, s, http.MethodPost, "/internships", map[string]interface{}{
		"title":        "Backend intern",
		"description":  "Build APIs",
		"startDate":    "2024-02-01T00:00:00Z",
		"endDate":      "2024-05-31T00:00:00Z",
		"workingHours": 40,
		"batch":        batchID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return field(t, decodeBody(t, rr), "internship", "id").(string)
}

func TestHealthEndpoint(t *testing.T) {
	s := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test-v1", body["version"])
	assert.Equal(t, "ok", field(t, body, "checks", "repository"))

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTenantRequired(t *testing.T) {
	s := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/batches", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), TenantIDHeader)

	for _, tenant := range []string{"acme.eu", "a:b", strings.Repeat("x", 65)} {
		req := httptest.NewRequest(http.MethodGet, "/batches", nil)
		req.Header.Set(TenantIDHeader, tenant)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, tenant)
	}
}

func TestValidTenantID(t *testing.T) {
	assert.True(t, validTenantID("tenant-001"))
	assert.True(t, validTenantID("Acme_EU"))
	assert.False(t, validTenantID("acme eu"))
	assert.False(t, validTenantID("acme>"))
}

func TestTracingHeaders(t *testing.T) {
	s := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
	assert.NotEmpty(t, rr.Header().Get(TraceIDHeader))
}

func TestBatchEndpoints(t *testing.T) {
	s := createTestServer(t)

	t.Run("Create", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/batches", batchBody())
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		body := decodeBody(t, rr)
		assert.Equal(t, "SP24", field(t, body, "batch", "code"))
		assert.Equal(t, float64(2), field(t, body, "metrics", "availableSlots"))
		assert.Equal(t, true, field(t, body, "metrics", "registrationOpen"))
		assert.Equal(t, "OPEN", field(t, body, "metrics", "phase"))
	})

	t.Run("MissingFields", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/batches", map[string]interface{}{"code": "X"})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "required", field(t, decodeBody(t, rr), "fields", "Name"))
	})

	t.Run("InconsistentDates", func(t *testing.T) {
		body := batchBody()
		body["registrationEnd"] = "2024-03-01T00:00:00Z"
		rr := do(t, s, http.MethodPost, "/batches", body)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		assert.NotEmpty(t, field(t, decodeBody(t, rr), "problems"))
	})

	t.Run("UnknownField", func(t *testing.T) {
		body := batchBody()
		body["capacity"] = 3
		rr := do(t, s, http.MethodPost, "/batches", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("OversizedBody", func(t *testing.T) {
		body := batchBody()
		body["description"] = strings.Repeat("x", maxBodyBytes+1)
		rr := do(t, s, http.MethodPost, "/batches", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/batches/missing", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("ListAndDeactivate", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/batches", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		require.Equal(t, float64(1), body["count"])

		id := field(t, body["items"].([]interface{})[0].(map[string]interface{}), "batch", "id").(string)
		rr = do(t, s, http.MethodPost, "/batches/"+id+"/deactivate", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, false, field(t, decodeBody(t, rr), "batch", "active"))

		rr = do(t, s, http.MethodPost, "/internships", map[string]interface{}{
			"title":        "Backend intern",
			"description":  "Build APIs",
			"startDate":    "2024-02-01T00:00:00Z",
			"endDate":      "2024-05-31T00:00:00Z",
			"workingHours": 40,
			"batch":        id,
		})
		assert.Equal(t, http.StatusConflict, rr.Code, "inactive batch refuses placements")
	})
}

func TestInternshipEndpoints(t *testing.T) {
	s := createTestServer(t)
	batchID := createBatch(t, s)
	id := createInternship(t, s, batchID)

	t.Run("InvalidTransition", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/internships/"+id+"/start", nil)
		require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
		assert.Equal(t, "PENDING", decodeBody(t, rr)["from"])
	})

	t.Run("ApproveAndAssign", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/internships/"+id+"/approve", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "APPROVED", field(t, decodeBody(t, rr), "internship", "status"))

		rr = do(t, s, http.MethodPost, "/internships/"+id+"/assign", map[string]interface{}{
			"student": map[string]interface{}{"id": "stu-1", "name": "Ada"},
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "required", field(t, decodeBody(t, rr), "fields", "Company"))

		rr = do(t, s, http.MethodPost, "/internships/"+id+"/assign", map[string]interface{}{
			"student": map[string]interface{}{"id": "stu-1", "name": "Ada"},
			"company": "co-1",
			"mentor":  "mentor-1",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		assert.Equal(t, true, field(t, body, "metrics", "assigned"))
		assert.Equal(t, "stu-1", field(t, body, "internship", "student", "id"))

		rr = do(t, s, http.MethodGet, "/batches/"+batchID, nil)
		assert.Equal(t, float64(1), field(t, decodeBody(t, rr), "metrics", "availableSlots"))
	})

	t.Run("List", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/batches/"+batchID+"/internships", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

		rr = do(t, s, http.MethodGet, "/internships?status=bogus", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = do(t, s, http.MethodGet, "/internships?studentId=stu-1", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, float64(1), decodeBody(t, rr)["count"])
	})

	t.Run("RejectNeedsReason", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/internships/"+id+"/reject", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Assessment", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/policies", map[string]interface{}{
			"id":         "no-teacher",
			"name":       "No teacher",
			"expression": "has_mentor ? 0.0 : 1.0",
			"bands":      []map[string]interface{}{{"lowerLimit": 1, "outcome": ".risk", "reason": "no mentor"}},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = do(t, s, http.MethodPost, "/internships/"+id+"/assessment", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		assert.Equal(t, "ON_TRACK", body["status"])
		assert.Len(t, body["results"], 1)
	})
}

func TestContractEndpoints(t *testing.T) {
	s := createTestServer(t)
	internshipID := createInternship(t, s, createBatch(t, s))

	rr := do(t, s, http.MethodPost, "/contracts", map[string]interface{}{
		"title":      "Internship agreement",
		"internship": internshipID,
		"salary":     1000,
		"payPeriod":  "MONTHLY",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := field(t, decodeBody(t, rr), "contract", "id").(string)

	rr = do(t, s, http.MethodPost, "/contracts/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	t.Run("UnknownParty", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/contracts/"+id+"/sign", map[string]string{"party": "BANK", "signerId": "x"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("SignAllParties", func(t *testing.T) {
		var body map[string]interface{}
		for _, party := range []string{"STUDENT", "COMPANY", "SCHOOL"} {
			rr := do(t, s, http.MethodPost, "/contracts/"+id+"/sign", map[string]string{"party": party, "signerId": "signer-" + party})
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			body = decodeBody(t, rr)
		}
		assert.Equal(t, float64(100), field(t, body, "metrics", "signatureProgress"))
		assert.Equal(t, true, field(t, body, "metrics", "fullySigned"))
	})

	t.Run("ListByInternship", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/internships/"+internshipID+"/contracts", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, float64(1), decodeBody(t, rr)["count"])
	})

	t.Run("Sweep", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/contracts/sweep", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, float64(0), decodeBody(t, rr)["expired"])
	})
}

func TestEvaluationEndpoints(t *testing.T) {
	s := createTestServer(t)
	batchID := createBatch(t, s)
	internshipID := createInternship(t, s, batchID)

	rr := do(t, s, http.MethodPost, "/evaluations", map[string]interface{}{
		"title":      "Midterm",
		"type":       "MENTOR",
		"internship": internshipID,
		"evaluator":  map[string]string{"id": "mentor-1", "name": "Grace"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := field(t, decodeBody(t, rr), "evaluation", "id").(string)

	t.Run("UnknownCriterion", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/evaluations/"+id+"/scores", map[string]interface{}{
			"scores": map[string]float64{"charisma": 5},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("IncompleteSubmit", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/evaluations/"+id+"/submit", nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("ScoreAndSubmit", func(t *testing.T) {
		rr := do(t, s, http.MethodPost, "/evaluations/"+id+"/scores", map[string]interface{}{
			"scores": map[string]float64{
				"technical":      8,
				"communication":  8,
				"teamwork":       8,
				"problemSolving": 8,
			},
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		assert.Equal(t, true, field(t, body, "metrics", "complete"))
		assert.Equal(t, float64(8), field(t, body, "metrics", "averageSkillScore"))

		rr = do(t, s, http.MethodPost, "/evaluations/"+id+"/submit", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body = decodeBody(t, rr)
		assert.Equal(t, "SUBMITTED", field(t, body, "evaluation", "status"))
		assert.Equal(t, "B", field(t, body, "metrics", "grade"))
		assert.Equal(t, float64(80), field(t, body, "metrics", "percent"))
	})

	t.Run("Statistics", func(t *testing.T) {
		rr := do(t, s, http.MethodGet, "/internships/"+internshipID+"/statistics", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		body := decodeBody(t, rr)
		assert.Equal(t, float64(1), body["completed"])
		assert.Equal(t, float64(100), body["completionRate"])

		rr = do(t, s, http.MethodGet, "/batches/"+batchID+"/statistics", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, float64(1), decodeBody(t, rr)["total"])
	})
}

func TestPolicyEndpoints(t *testing.T) {
	s := createTestServer(t)

	rr := do(t, s, http.MethodPost, "/policies", map[string]interface{}{
		"name":       "Broken",
		"expression": "amount > 1.0",
		"bands":      []map[string]interface{}{{"outcome": ".risk"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = do(t, s, http.MethodPost, "/policies", map[string]interface{}{
		"id":         "late",
		"name":       "Behind schedule",
		"expression": "progress < 50 && days_remaining < 14",
		"bands":      []map[string]interface{}{{"lowerLimit": 1, "outcome": ".risk", "reason": "late"}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, s, http.MethodGet, "/policies", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

	rr = do(t, s, http.MethodPost, "/policies/reload", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

	rr = do(t, s, http.MethodDelete, "/policies/late", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, s, http.MethodGet, "/policies/late", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
