// Package metrics counts engine activity. The Recorder is nil-safe so
// callers never have to care whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	registry *prometheus.Registry

	roundsStarted     prometheus.Counter
	guessesSubmitted  prometheus.Counter
	contestsSubmitted prometheus.Counter
	gamesStarted      prometheus.Counter
	gamesFinished     prometheus.Counter
	activeGames       prometheus.Gauge
}

// NewRecorder builds a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		roundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hitline_rounds_started_total",
			Help: "Rounds that entered clip playback.",
		}),
		guessesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hitline_guesses_submitted_total",
			Help: "Song name guesses submitted by acting players.",
		}),
		contestsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hitline_contests_submitted_total",
			Help: "Contest bids submitted (each spends one token).",
		}),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hitline_games_started_total",
			Help: "Games started.",
		}),
		gamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hitline_games_finished_total",
			Help: "Games that reached FINISHED.",
		}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hitline_active_games",
			Help: "Games currently in progress.",
		}),
	}
	reg.MustRegister(
		r.roundsStarted,
		r.guessesSubmitted,
		r.contestsSubmitted,
		r.gamesStarted,
		r.gamesFinished,
		r.activeGames,
	)
	return r
}

// Handler exposes the recorder's registry in prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RoundStarted() {
	if r == nil {
		return
	}
	r.roundsStarted.Inc()
}

func (r *Recorder) GuessSubmitted() {
	if r == nil {
		return
	}
	r.guessesSubmitted.Inc()
}

func (r *Recorder) ContestSubmitted() {
	if r == nil {
		return
	}
	r.contestsSubmitted.Inc()
}

func (r *Recorder) GameStarted() {
	if r == nil {
		return
	}
	r.gamesStarted.Inc()
	r.activeGames.Inc()
}

func (r *Recorder) GameFinished() {
	if r == nil {
		return
	}
	r.gamesFinished.Inc()
	r.activeGames.Dec()
}
