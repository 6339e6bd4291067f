package jobstatus

import (
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flowmetal/jobstatus/jobtype"
	"github.com/flowmetal/jobstatus/timefmt"
)

var testRegistry = jobtype.NewRegistry(
	jobtype.JobType{Name: "import", Lock: "lock-import"},
	jobtype.JobType{Name: "export", Lock: "lock-export"},
)

// ticks between the gregorian epoch (1582-10-15) and the unix epoch,
// in 100ns units
const gregorianToUnix = 122192928000000000

// v1UUID builds a time-ordered id embedding the given instant.
func v1UUID(t *testing.T, at time.Time) uuid.UUID {
	t.Helper()
	ticks := uint64(at.Unix())*10000000 + uint64(at.Nanosecond()/100) + gregorianToUnix

	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:], uint32(ticks))
	binary.BigEndian.PutUint16(u[4:], uint16(ticks>>32))
	binary.BigEndian.PutUint16(u[6:], uint16(ticks>>48)&0x0fff|0x1000)
	u[8] = 0x80 // RFC 4122 variant
	u[9] = 0x01
	copy(u[10:], []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01})

	require.Equal(t, uuid.Version(1), u.Version())
	return u
}

func TestRoundTripRandomJobID(t *testing.T) {
	jt, _ := testRegistry.Resolve("import")
	orig := New(
		uuid.MustParse("5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44"),
		jt,
		uuid.MustParse("e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2"), // v4, no embedded time
		StateFinished,
		time.Date(2024, 3, 10, 12, 5, 0, 0, time.UTC),
		map[string]any{"rows": float64(42), "source": "s3://bucket/key"},
	)
	require.Equal(t, ResultSuccess, orig.Result)

	doc, err := Serialize(orig)
	require.NoError(t, err)

	got, err := Deserialize(doc, testRegistry)
	require.NoError(t, err)
	require.Equal(t, orig.TriggerID, got.TriggerID)
	require.Equal(t, orig.JobType, got.JobType)
	require.Equal(t, orig.JobID, got.JobID)
	require.Equal(t, orig.State, got.State)
	require.Equal(t, orig.Result, got.Result)
	require.True(t, got.StatusTS.Equal(orig.StatusTS))
	require.Equal(t, orig.Content, got.Content)
}

func TestSerializeDerivesStartTimeAndDuration(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	jt, _ := testRegistry.Resolve("export")
	st := New(uuid.New(), jt, v1UUID(t, start), StateRunning, start.Add(5*time.Minute), nil)

	doc, err := Serialize(st)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(doc, &fields))
	require.Equal(t, "2024-03-10T12:00:00.000Z", fields["startTime"])
	require.Equal(t, "5 minutes", fields["duration"])
	require.Equal(t, "2024-03-10T12:05:00.000Z", fields["jobStatusTs"])
	require.Equal(t, "Running", fields["jobState"])
	require.Equal(t, "Pending", fields["jobResult"])
}

func TestSerializeOmitsDerivedFieldsForRandomID(t *testing.T) {
	jt, _ := testRegistry.Resolve("import")
	st := New(uuid.New(), jt, uuid.New(), StateFailed, time.Now().UTC(), nil)

	doc, err := Serialize(st)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(doc, &fields))
	require.NotContains(t, fields, "startTime")
	require.NotContains(t, fields, "duration")
	require.NotContains(t, fields, "content")
}

func TestSerializeNegativeDurationPassesThrough(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	jt, _ := testRegistry.Resolve("import")
	// status timestamp behind the embedded start instant: clock skew
	st := New(uuid.New(), jt, v1UUID(t, start), StateRunning, start.Add(-2*time.Minute), nil)

	doc, err := Serialize(st)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(doc, &fields))
	require.Equal(t, "-2 minutes", fields["duration"])
}

func TestDeserializeLegacyEpochMillis(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Dead",
		"jobResult": "Failed",
		"jobStatusTs": 1705314600000
	}`)

	st, err := Deserialize(doc, testRegistry)
	require.NoError(t, err)
	require.True(t, st.StatusTS.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	require.Equal(t, StateDead, st.State)
	require.Equal(t, ResultFailed, st.Result)
	require.Nil(t, st.Content)
}

func TestDeserializeRecoversLockType(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "export",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Warning",
		"jobResult": "Success",
		"jobStatusTs": "2024-01-15T10:30:00.000Z"
	}`)

	st, err := Deserialize(doc, testRegistry)
	require.NoError(t, err)
	require.Equal(t, jobtype.LockType("lock-export"), st.JobType.Lock)
}

func TestDeserializeSupervisorAlwaysResolvable(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "supervisor",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Pending",
		"jobStatusTs": "2024-01-15T10:30:00.000Z"
	}`)

	st, err := Deserialize(doc, jobtype.NewRegistry())
	require.NoError(t, err)
	require.Equal(t, jobtype.Supervisor, st.JobType)
}

func TestDeserializeMissingFields(t *testing.T) {
	base := map[string]any{
		"triggerId":   "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType":     "import",
		"jobId":       "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState":    "Running",
		"jobResult":   "Pending",
		"jobStatusTs": "2024-01-15T10:30:00.000Z",
	}
	for _, field := range []string{"triggerId", "jobType", "jobId", "jobState", "jobResult", "jobStatusTs"} {
		partial := map[string]any{}
		for k, v := range base {
			if k != field {
				partial[k] = v
			}
		}
		doc, err := json.Marshal(partial)
		require.NoError(t, err)

		_, err = Deserialize(doc, testRegistry)
		var merr *MissingFieldError
		require.ErrorAs(t, err, &merr, "field %s", field)
		require.Equal(t, field, merr.Field)
	}
}

func TestDeserializeUnknownJobType(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "reindex",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Pending",
		"jobStatusTs": "2024-01-15T10:30:00.000Z"
	}`)

	_, err := Deserialize(doc, testRegistry)
	var uerr *UnknownJobTypeError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "reindex", uerr.Name)
}

func TestDeserializeUnknownEnumValues(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "BOGUS",
		"jobResult": "Pending",
		"jobStatusTs": "2024-01-15T10:30:00.000Z"
	}`)

	_, err := Deserialize(doc, testRegistry)
	var eerr *UnknownEnumValueError
	require.ErrorAs(t, err, &eerr)
	require.Equal(t, "jobState", eerr.Field)
	require.Equal(t, "BOGUS", eerr.Value)

	doc = []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Maybe",
		"jobStatusTs": "2024-01-15T10:30:00.000Z"
	}`)

	_, err = Deserialize(doc, testRegistry)
	require.ErrorAs(t, err, &eerr)
	require.Equal(t, "jobResult", eerr.Field)
	require.Equal(t, "Maybe", eerr.Value)
}

func TestDeserializeBadTimestamps(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Pending",
		"jobStatusTs": "yesterday"
	}`)

	_, err := Deserialize(doc, testRegistry)
	var perr *timefmt.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "yesterday", perr.Value)

	doc = []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Pending",
		"jobStatusTs": true
	}`)

	_, err = Deserialize(doc, testRegistry)
	var serr *timefmt.SchemaError
	require.ErrorAs(t, err, &serr)
}

func TestDeserializeIgnoresInboundDerivedFields(t *testing.T) {
	doc := []byte(`{
		"triggerId": "5f9c6a2e-93a1-4f0d-9c57-2b8e3a6f1d44",
		"jobType": "import",
		"jobId": "e38b62c1-63f7-4a7b-8a10-0f2d9c4b77a2",
		"jobState": "Running",
		"jobResult": "Pending",
		"jobStatusTs": "2024-01-15T10:30:00.000Z",
		"startTime": "1999-01-01T00:00:00.000Z",
		"duration": "25 years"
	}`)

	st, err := Deserialize(doc, testRegistry)
	require.NoError(t, err)

	// the job id is v4, so no derived start time regardless of input
	_, ok := st.StartTime()
	require.False(t, ok)
}

func TestStartTimeFromTimeOrderedID(t *testing.T) {
	start := time.Date(2022, 11, 5, 9, 30, 0, 0, time.UTC)
	jt, _ := testRegistry.Resolve("import")
	st := New(uuid.New(), jt, v1UUID(t, start), StatePreparing, start.Add(30*time.Second), nil)

	got, ok := st.StartTime()
	require.True(t, ok)
	require.True(t, got.Equal(start))

	d, ok := st.Duration()
	require.True(t, ok)
	require.Equal(t, 30*time.Second, d)
}
