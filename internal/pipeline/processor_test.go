package pipeline

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtrc-svr/internal/codec"
)

// withChecksum agrega el checksum correcto al cuerpo.
func withChecksum(body string) string {
	return body + "|" + strconv.Itoa(codec.Checksum(body))
}

func TestProcessValidFrame(t *testing.T) {
	t.Parallel()
	r, err := Process(withChecksum("GTRC|dev1|12.34|56.78|23.5"))
	require.NoError(t, err)
	assert.Equal(t, DeviceReading{
		DeviceID:    "dev1",
		Latitude:    12.34,
		Longitude:   56.78,
		Temperature: 23.5,
		Checksum:    88,
	}, r)
}

func TestProcessFloatSyntax(t *testing.T) {
	t.Parallel()
	r, err := Process(withChecksum("GTRC|dev1|1e3|-0.5|NaN"))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, r.Latitude)
	assert.Equal(t, -0.5, r.Longitude)
	assert.True(t, math.IsNaN(r.Temperature))
	assert.Equal(t, 22, r.Checksum)
}

func TestProcessRejections(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		line   string
		reason codec.Reason
		field  string
	}{
		{"bad prefix", "XXXX|dev1|12.34|56.78|23.5|88", codec.BadPrefix, ""},
		{"wrong field count", "GTRC|dev1|12.34|56.78", codec.WrongFieldCount, ""},
		{"bad checksum format", "GTRC|dev1|12.34|56.78|23.5|abc", codec.BadChecksumFormat, "checksum"},
		{"checksum mismatch", "GTRC|dev1|12.34|56.78|23.5|999", codec.ChecksumMismatch, ""},
		{"bad latitude", withChecksum("GTRC|dev1|abc|56.78|23.5"), codec.BadNumericField, "latitude"},
		{"bad longitude", withChecksum("GTRC|dev1|12.34||23.5"), codec.BadNumericField, "longitude"},
		{"bad temperature", withChecksum("GTRC|dev1|12.34|56.78|x"), codec.BadNumericField, "temperature"},
		{"empty device id", withChecksum("GTRC||1|2|3"), codec.WrongFieldCount, "device_id"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			_, err := Process(c.line)
			require.Error(t, err)
			var rej *codec.Rejection
			require.True(t, errors.As(err, &rej), "err=%v", err)
			assert.Equal(t, c.reason, rej.Reason)
			assert.ErrorIs(t, err, c.reason)
			assert.Equal(t, c.field, rej.Field)
		})
	}
}

func TestProcessLenientNumbers(t *testing.T) {
	t.Parallel()
	r, err := Process(withChecksum("GTRC|dev1| 12.5 |1_0|-4_2.0_5"))
	require.NoError(t, err)
	assert.Equal(t, 12.5, r.Latitude)
	assert.Equal(t, 10.0, r.Longitude)
	assert.Equal(t, -42.05, r.Temperature)

	for _, body := range []string{"GTRC|dev1|1__0|2|3", "GTRC|dev1|1|0x1p4|3", "GTRC|dev1|1|2|_3"} {
		_, err := Process(withChecksum(body))
		assert.ErrorIs(t, err, codec.BadNumericField, body)
	}
}

func TestProcessEmptyDeviceID(t *testing.T) {
	t.Parallel()
	_, err := Process(withChecksum("GTRC||1|2|3"))
	var rej *codec.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, 0, rej.Count)
	assert.Equal(t, "device_id", rej.Field)
	assert.Equal(t, "codec: wrong_field_count: empty device_id", rej.Error())
}

// La validación de checksum corre antes que el parseo numérico.
func TestProcessChecksumBeforeNumeric(t *testing.T) {
	t.Parallel()
	_, err := Process("GTRC|dev1|abc|56.78|23.5|0")
	assert.ErrorIs(t, err, codec.ChecksumMismatch)
}

func TestRoundTripFromReading(t *testing.T) {
	t.Parallel()
	readings := []DeviceReading{
		{DeviceID: "dev1", Latitude: 12.34, Longitude: 56.78, Temperature: 23.5},
		{DeviceID: "tracker-0007", Latitude: -33.4489, Longitude: -70.6693, Temperature: -4.25},
		{DeviceID: "x", Latitude: 0, Longitude: 0, Temperature: 0},
		{DeviceID: "ñandú", Latitude: 89.999999, Longitude: -179.5, Temperature: 1e-7},
	}
	for _, in := range readings {
		line := codec.EncodeFrame(in.DeviceID, in.Latitude, in.Longitude, in.Temperature)
		out, err := Process(line)
		require.NoError(t, err, line)
		assert.Equal(t, in.DeviceID, out.DeviceID)
		assert.Equal(t, in.Latitude, out.Latitude)
		assert.Equal(t, in.Longitude, out.Longitude)
		assert.Equal(t, in.Temperature, out.Temperature)
		assert.GreaterOrEqual(t, out.Checksum, 0)
		assert.LessOrEqual(t, out.Checksum, 255)
	}
}
