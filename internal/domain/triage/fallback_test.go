package triage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) CollaboratorFallback(name string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[name]++
}

type stubScorer struct {
	score float64
	err   error
}

func (s stubScorer) Score(context.Context, string, int) (float64, error) { return s.score, s.err }

func scoreServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFallbackScorer_UsesRemote(t *testing.T) {
	srv := scoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Age != 46 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"risk_score": 0.91}`))
	})

	rec := &countingRecorder{}
	f := NewFallbackScorer(NewRemoteScorer(srv.URL), zerolog.Nop())
	f.SetRecorder(rec)

	got, err := f.Score(context.Background(), "chest pain", 46)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.91 {
		t.Errorf("expected remote score 0.91, got %v", got)
	}
	if rec.counts[CollaboratorScorer] != 0 {
		t.Error("no fallback expected")
	}
}

func TestFallbackScorer_Degrades(t *testing.T) {
	local, _ := KeywordScorer{}.Score(context.Background(), "chest pain", 46)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"risk_score": 1.5}`))
		}},
		{"missing field", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"risk_score": 0.5}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := scoreServer(t, tt.handler)
			rec := &countingRecorder{}
			f := NewFallbackScorer(NewRemoteScorer(srv.URL, WithTimeout(50*time.Millisecond)), zerolog.Nop())
			f.SetRecorder(rec)

			got, err := f.Score(context.Background(), "chest pain", 46)
			if err != nil {
				t.Fatalf("fallback must not fail, got %v", err)
			}
			if got != local {
				t.Errorf("expected local score %v, got %v", local, got)
			}
			if rec.counts[CollaboratorScorer] != 1 {
				t.Errorf("expected one recorded fallback, got %d", rec.counts[CollaboratorScorer])
			}
		})
	}
}

func TestFallbackScorer_NoPrimary(t *testing.T) {
	rec := &countingRecorder{}
	f := NewFallbackScorer(nil, zerolog.Nop())
	f.SetRecorder(rec)

	want, _ := KeywordScorer{}.Score(context.Background(), "mild cough", 20)
	got, _ := f.Score(context.Background(), "mild cough", 20)
	if got != want {
		t.Errorf("expected keyword score, got %v", got)
	}
	if len(rec.counts) != 0 {
		t.Error("an unconfigured collaborator is not a fallback")
	}
}

func TestFallbackScorer_PrimaryError(t *testing.T) {
	f := NewFallbackScorer(stubScorer{err: errors.New("model not loaded")}, zerolog.Nop())
	got, err := f.Score(context.Background(), "fever", 30)
	if err != nil || got <= 0 {
		t.Errorf("expected keyword score, got %v, %v", got, err)
	}
}

func TestFallbackSummarizer(t *testing.T) {
	in := SummaryInput{Symptoms: "sore throat", Age: 30, Level: RiskLow}

	srv := scoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		var got SummaryInput
		json.NewDecoder(r.Body).Decode(&got)
		if got.Level != RiskLow {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"summary": "  Remote summary.  "}`))
	})
	f := NewFallbackSummarizer(NewRemoteSummarizer(srv.URL), zerolog.Nop())
	got, err := f.Summarize(context.Background(), in)
	if err != nil || got != "Remote summary." {
		t.Errorf("expected trimmed remote summary, got %q, %v", got, err)
	}

	blank := scoreServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"summary": ""}`))
	})
	rec := &countingRecorder{}
	f = NewFallbackSummarizer(NewRemoteSummarizer(blank.URL), zerolog.Nop())
	f.SetRecorder(rec)
	got, _ = f.Summarize(context.Background(), in)
	if got != RuleSummary(in) {
		t.Errorf("expected rule summary, got %q", got)
	}
	if rec.counts[CollaboratorSummarizer] != 1 {
		t.Errorf("expected one summary fallback, got %d", rec.counts[CollaboratorSummarizer])
	}
}
