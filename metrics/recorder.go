// Package metrics records questionnaire activity as Prometheus metrics.
package metrics

import (
	"QuestionnaireBot/model"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Recorder implements session.Observer and loader.Recorder.
type Recorder struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	answersTotal  *prometheus.CounterVec
	rejectedTotal *prometheus.CounterVec
	loadFailures  *prometheus.CounterVec
}

// NewRecorder registers the questionnaire metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "questionnaire_runs_started_total",
			Help: "Number of questionnaire runs started, including restarts",
		}),
		runsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "questionnaire_runs_completed_total",
			Help: "Number of questionnaire runs that reached the summary",
		}),
		answersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionnaire_answers_total",
				Help: "Accepted answers by question type",
			},
			[]string{"type"},
		),
		rejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionnaire_submissions_rejected_total",
				Help: "Submissions ignored by the state machine, by reason",
			},
			[]string{"reason"},
		),
		loadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionnaire_load_failures_total",
				Help: "Failed data loads by source",
			},
			[]string{"source"},
		),
	}
}

func (r *Recorder) RunStarted() {
	r.runsStarted.Inc()
}

func (r *Recorder) RunCompleted() {
	r.runsCompleted.Inc()
}

func (r *Recorder) AnswerAccepted(kind model.Kind) {
	r.answersTotal.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) SubmissionRejected(reason string) {
	r.rejectedTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) LoadFailed(source string) {
	r.loadFailures.WithLabelValues(source).Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
