package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/admin/projects/:id/keys", NormalizePath("/admin/projects/3f2b8c1e-1a2b-4c3d-9e8f-0123456789ab/keys"))
	assert.Equal(t, "/sdk/otp/send", NormalizePath("/sdk/otp/send?x=1"))
	assert.Equal(t, "/", NormalizePath(""))
}

func TestRegister_AndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := Register(Config{Registry: reg})
	require.NoError(t, err)
	assert.NotNil(t, h)

	before := testutil.ToFloat64(otpTotal.WithLabelValues("redeem", "ok"))
	OTP("redeem", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(otpTotal.WithLabelValues("redeem", "ok")))
}
