package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestUploadsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	uploads := NewUploads(reg)

	uploads.Observe("employees", ResultSuccess, 120*time.Millisecond)
	uploads.Observe("employees", ResultSuccess, 80*time.Millisecond)
	uploads.Rows("employees", "created", 5)
	uploads.Rows("employees", "failed", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(uploads.total.WithLabelValues("employees", ResultSuccess)))
	require.Equal(t, 5.0, testutil.ToFloat64(uploads.rows.WithLabelValues("employees", "created")))
	require.Equal(t, 1, testutil.CollectAndCount(uploads.rows))
}

func TestNilUploadsIsNoop(t *testing.T) {
	var uploads *Uploads
	uploads.Observe("attendance", ResultFailed, time.Second)
	uploads.Rows("attendance", "created", 3)
}
