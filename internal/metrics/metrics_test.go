package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on a fresh registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithRegistry(registry), WithNamespace("test"))
		So(m.Registry(), ShouldEqual, registry)

		Convey("When recording a run", func() {
			m.ObserveFetch("basketball_nba", "ok", 3)
			m.ObserveFetch("baseball_mlb", "http_error", 0)
			m.AddRows(12)
			m.AddPicks(4)
			m.AddPersisted("raw_odds", 12)
			m.SetAccuracy(0.98)
			m.ObserveRun("ok", 2*time.Second)

			Convey("Then counters reflect the observations", func() {
				So(testutil.ToFloat64(m.fetches.WithLabelValues("basketball_nba", "ok")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(m.fetches.WithLabelValues("baseball_mlb", "http_error")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(m.eventsFetched), ShouldEqual, 3.0)
				So(testutil.ToFloat64(m.rowsFlattened), ShouldEqual, 12.0)
				So(testutil.ToFloat64(m.picksEmitted), ShouldEqual, 4.0)
				So(testutil.ToFloat64(m.rowsPersisted.WithLabelValues("raw_odds")), ShouldEqual, 12.0)
				So(testutil.ToFloat64(m.modelAccuracy), ShouldEqual, 0.98)
				So(testutil.ToFloat64(m.runs.WithLabelValues("ok")), ShouldEqual, 1.0)
			})

			Convey("And the handler exposes them under the namespace", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(rec.Body.String(), "test_pipeline_picks_total 4"), ShouldBeTrue)
			})
		})

		Convey("Two managers on separate registries do not collide", func() {
			So(func() { NewManager() }, ShouldNotPanic)
			So(func() { NewManager() }, ShouldNotPanic)
		})
	})
}
