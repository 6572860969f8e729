package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubSettlement returns canned results
type stubSettlement struct {
	result       *models.SettlementResult
	err          error
	assignResult *models.AssignResult
	assignErr    error
	unlocked     int

	gotTarget   string
	gotOverride *float64
}

func (s *stubSettlement) RunNightly(context.Context) (*models.SettlementResult, error) {
	return s.result, s.err
}

func (s *stubSettlement) AssignNow(_ context.Context, _ string, target string, override *float64) (*models.AssignResult, error) {
	s.gotTarget, s.gotOverride = target, override
	return s.assignResult, s.assignErr
}

func (s *stubSettlement) ForceUnlock(context.Context, string) (string, error) {
	s.unlocked++
	return "2026-01-15", s.err
}

func (s *stubSettlement) PreviewRanking(context.Context) ([]*models.RankedCandidate, error) {
	return []*models.RankedCandidate{{Rank: 1, UID: "a"}}, s.err
}

func do(h gin.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, strings.SplitN(target, "?", 2)[0], h)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSettleCrownStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		outcome models.SettlementOutcome
		code    int
		body    string
	}{
		{"won", models.OutcomeWon, http.StatusOK, `{"ok":true,"winnerUid":"u1","amountCents":5000,"paymentIntentId":"pi_1","dateKey":"2026-01-15","attempts":1}`},
		{"already settled", models.OutcomeAlreadySettled, http.StatusOK, `{"ok":true,"didNothing":true,"reason":"alreadySettled","dateKey":"2026-01-15"}`},
		{"already settling", models.OutcomeAlreadySettling, http.StatusOK, `{"ok":true,"didNothing":true,"reason":"alreadySettling","dateKey":"2026-01-15"}`},
		{"no candidates", models.OutcomeNoCandidates, http.StatusNotFound, `{"ok":false,"error":"No offers found","dateKey":"2026-01-15"}`},
		{"no active candidates", models.OutcomeNoActiveCandidates, http.StatusNotFound, `{"ok":false,"error":"No active offers found","dateKey":"2026-01-15"}`},
		{"all failed", models.OutcomeAllFailed, http.StatusPaymentRequired, `{"ok":false,"error":"All top offers failed","dateKey":"2026-01-15","attempts":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSettlement{result: &models.SettlementResult{Outcome: tt.outcome, DateKey: "2026-01-15", Attempts: 1}}
			if tt.outcome == models.OutcomeWon {
				stub.result.WinnerUID, stub.result.AmountCents, stub.result.PaymentIntentID = "u1", 5000, "pi_1"
			}
			w := do(NewSettlementHandler(stub).SettleCrown, http.MethodPost, "/cron", "")
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestSettleCrownError(t *testing.T) {
	stub := &stubSettlement{err: errors.New("store unavailable")}
	w := do(NewSettlementHandler(stub).SettleCrown, http.MethodPost, "/cron", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"store unavailable"}`, w.Body.String())
}

func TestSettleCrownForceUnlock(t *testing.T) {
	stub := &stubSettlement{}
	w := do(NewSettlementHandler(stub).SettleCrown, http.MethodPost, "/cron?force=1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"forcedUnlock":true,"dateKey":"2026-01-15"}`, w.Body.String())
	assert.Equal(t, 1, stub.unlocked)
}

func TestAssignCrownNowAcceptsEitherKey(t *testing.T) {
	stub := &stubSettlement{assignResult: &models.AssignResult{UID: "u1", AmountCents: 900, PaymentIntentID: "pi_1", DateKey: "2026-01-15"}}
	h := NewSettlementHandler(stub)

	w := do(h.AssignCrownNow, http.MethodPost, "/assign", `{"uid":"u1","amountCents":900}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"uid":"u1","amountCents":900,"paymentIntentId":"pi_1","dateKey":"2026-01-15"}`, w.Body.String())
	assert.Equal(t, "u1", stub.gotTarget)
	require.NotNil(t, stub.gotOverride)
	assert.Equal(t, 900.0, *stub.gotOverride)

	w = do(h.AssignCrownNow, http.MethodPost, "/assign", `{"uid":"u1","amountCents":1999.6}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, stub.gotOverride)
	assert.Equal(t, 1999.6, *stub.gotOverride)

	do(h.AssignCrownNow, http.MethodPost, "/assign", `{"targetUid":"u2","uid":"ignored"}`)
	assert.Equal(t, "u2", stub.gotTarget)
	assert.Nil(t, stub.gotOverride)

	do(h.AssignCrownNow, http.MethodPost, "/assign", "")
	assert.Equal(t, "", stub.gotTarget)
}

func TestAssignCrownNowErrors(t *testing.T) {
	stub := &stubSettlement{assignErr: &services.AssignError{
		Status:          http.StatusPaymentRequired,
		Reason:          "Charge did not succeed",
		StripeStatus:    "requires_action",
		PaymentIntentID: "pi_9",
	}}
	w := do(NewSettlementHandler(stub).AssignCrownNow, http.MethodPost, "/assign", `{"targetUid":"u1"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.JSONEq(t, `{"error":"Charge did not succeed","stripeStatus":"requires_action","paymentIntentId":"pi_9"}`, w.Body.String())

	stub.assignErr = errors.New("boom")
	w = do(NewSettlementHandler(stub).AssignCrownNow, http.MethodPost, "/assign", `{"targetUid":"u1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(NewSettlementHandler(stub).AssignCrownNow, http.MethodPost, "/assign", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCandidates(t *testing.T) {
	w := do(NewSettlementHandler(&stubSettlement{}).ListCandidates, http.MethodGet, "/candidates", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
