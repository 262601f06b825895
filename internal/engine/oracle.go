package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/campusgrid/timetable-api/internal/models"
)

// SuggestionOracle proposes one activity for a single open slot, given the
// student profile, the admissible pool, the already-used exclusions, and the
// configured strategy. The planner treats the oracle as advisory: an error,
// an empty answer, or a name outside the pool all fall through to the local
// heuristic.
type SuggestionOracle interface {
	Suggest(student models.Student, pool, exclusions []string, strategy string) (string, error)
}

// NullOracle never suggests anything. It is the default oracle.
type NullOracle struct{}

func (NullOracle) Suggest(models.Student, []string, []string, string) (string, error) {
	return "", nil
}

// HTTPOracle delegates suggestions to an external recommender endpoint.
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

func NewHTTPOracle(endpoint string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type oracleRequest struct {
	StudentID  string   `json:"student_id"`
	Interests  []string `json:"interests"`
	SkillLevel int      `json:"skill_level"`
	Goals      string   `json:"goals"`
	Pool       []string `json:"pool"`
	Exclusions []string `json:"exclusions"`
	Strategy   string   `json:"strategy"`
}

type oracleResponse struct {
	Activity string `json:"activity"`
}

func (o *HTTPOracle) Suggest(student models.Student, pool, exclusions []string, strategy string) (string, error) {
	payload, err := json.Marshal(oracleRequest{
		StudentID:  student.ID,
		Interests:  student.Interests,
		SkillLevel: student.SkillLevel,
		Goals:      student.Goals,
		Pool:       pool,
		Exclusions: exclusions,
		Strategy:   strategy,
	})
	if err != nil {
		return "", fmt.Errorf("encode oracle request: %w", err)
	}

	resp, err := o.client.Post(o.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var body oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode oracle response: %w", err)
	}
	answer := strings.TrimSpace(body.Activity)
	if answer == "" {
		return "", nil
	}
	if match := findInPool(pool, answer); match != "" {
		return match, nil
	}
	return "", fmt.Errorf("oracle suggested %q, which is not in the offered pool", answer)
}
