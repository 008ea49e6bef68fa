package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

func TestRow_Layout(t *testing.T) {
	sub := intake.Submission{
		Kind:      intake.KindJoinBeta,
		Name:      "Jane Doe",
		Email:     "jane@x.com",
		Company:   "Acme",
		Role:      "CTO",
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
	assert.Equal(t, []any{"2026-03-04T05:06:07Z", "join_beta", "Jane Doe", "jane@x.com", "Acme", "CTO", ""}, Row(sub))
}

func newTestAppender(t *testing.T, srv *httptest.Server) *Appender {
	t.Helper()
	a, err := newAppender(context.Background(), "sheet-1", "Sheet1!A1",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return a
}

func TestAppender_Deliver(t *testing.T) {
	var (
		gotMethod, gotPath string
		gotQuery           map[string][]string
	)
	var payload struct {
		MajorDimension string  `json:"majorDimension"`
		Values         [][]any `json:"values"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRows":1}}`))
	}))
	defer srv.Close()

	a := newTestAppender(t, srv)
	assert.Equal(t, "google_sheets", a.Name())

	err := a.Deliver(context.Background(), intake.Submission{
		Kind: intake.KindContact, Name: "Jane Doe", Email: "jane@x.com", Message: "hi",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Sheet1!A1:append", gotPath)
	assert.Equal(t, []string{"USER_ENTERED"}, gotQuery["valueInputOption"])
	assert.Equal(t, []string{"INSERT_ROWS"}, gotQuery["insertDataOption"])
	assert.Equal(t, "ROWS", payload.MajorDimension)
	require.Len(t, payload.Values, 1)
	assert.Equal(t, "jane@x.com", payload.Values[0][3])
	assert.Equal(t, "hi", payload.Values[0][6])
}

func TestAppender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	}))
	defer srv.Close()

	err := newTestAppender(t, srv).Append(context.Background(), []any{"x"})
	require.Error(t, err)

	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusForbidden, gerr.Code)
}

func TestNewAppender_RejectsBadCredentials(t *testing.T) {
	_, err := NewAppender(context.Background(), []byte(`{"type":"nope"}`), "sheet-1", "Sheet1!A1")
	assert.Error(t, err)
}
