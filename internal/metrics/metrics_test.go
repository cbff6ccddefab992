package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/wavesurfer/mctg/client"
)

func TestTrackerListener(t *testing.T) {
	l := NewTrackerListener()
	id := client.Pack700BID(835133, 1)
	updated := time.Unix(1700000000, 0)

	before := testutil.ToFloat64(telegraphs.WithLabelValues(id.String(), "1"))
	l.Telegraph(client.ElectrodeState{ID: id, HardwareType: client.HardwareMC700B, Updated: updated})
	l.Telegraph(client.ElectrodeState{ID: id, HardwareType: client.HardwareMC700B, Updated: updated})

	assert.Equal(t, before+2, testutil.ToFloat64(telegraphs.WithLabelValues(id.String(), "1")))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(lastTelegraph.WithLabelValues(id.String())))

	identifiedBefore := testutil.ToFloat64(identified)
	l.ElectrodeIdentified(id)
	assert.Equal(t, identifiedBefore+1, testutil.ToFloat64(identified))
}

func TestRelayMetrics(t *testing.T) {
	SetRelayPeers(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(relayPeers))

	before := testutil.ToFloat64(relayFrames.WithLabelValues(KindBinary, RouteDropped))
	RecordRelayFrame(KindBinary, RouteDropped)
	assert.Equal(t, before+1, testutil.ToFloat64(relayFrames.WithLabelValues(KindBinary, RouteDropped)))
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zerolog.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mctg_relay_peers")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
